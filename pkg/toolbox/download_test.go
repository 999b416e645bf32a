package toolbox

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
	"github.com/go-go-golems/gaia/pkg/security"
	"github.com/go-go-golems/gaia/pkg/toolbox/storage"
)

func TestInferFilename(t *testing.T) {
	cases := []struct {
		name        string
		url         string
		contentType string
		body        string
		want        string
	}{
		{"url extension wins", "https://x.org/files/report.csv", "application/pdf", "", "report.csv"},
		{"json", "https://x.org/api/1", "application/json; charset=utf-8", "", "temp.json"},
		{"pdf", "https://x.org/files/7", "application/pdf", "", "temp.pdf"},
		{"png", "https://x.org/i", "image/png", "", "temp.png"},
		{"jpeg", "https://x.org/i", "image/jpeg", "", "temp.jpg"},
		{"jpg", "https://x.org/i", "image/jpg", "", "temp.jpg"},
		{"html before text", "https://x.org/", "text/html; charset=utf-8", "", "temp.html"},
		{"xml", "https://x.org/feed", "application/xml", "", "temp.xml"},
		{"text xml", "https://x.org/feed", "text/xml", "", "temp.xml"},
		{"csv", "https://x.org/data", "text/csv", "", "temp.csv"},
		{"plain", "https://x.org/readme", "text/plain", "", "temp.txt"},
		{"other text", "https://x.org/readme", "text/markdown", "", "temp.txt"},
		{"sniff object", "https://x.org/blob", "application/octet-stream", `  {"a": 1}`, "temp.json"},
		{"sniff array", "https://x.org/blob", "", `[1,2]`, "temp.json"},
		{"sniff markup", "https://x.org/blob", "", "<svg></svg>", "temp.html"},
		{"default", "https://x.org/blob", "", "plain words", "temp.txt"},
		{"dot directory ignored", "https://x.org/v1.2/blob", "image/png", "", "temp.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InferFilename(tc.url, tc.contentType, []byte(tc.body)))
		})
	}
}

func localDownloader(dir string, opts ...DownloaderOption) *Downloader {
	opts = append([]DownloaderOption{
		WithDownloadDir(dir),
		WithURLPolicy(security.OutboundURLOptions{AllowHTTP: true, AllowLocalNetworks: true}),
	}, opts...)
	return NewDownloader(storage.NewLocalStorage(""), 5*time.Second, opts...)
}

func TestDownloadPDFWithoutFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.7")
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "downloads")
	p, err := localDownloader(".").Execute(context.Background(), tools.Arguments{"url": srv.URL + "/files/task-42", "save_dir": dir})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, ".pdf"))
	assert.Equal(t, filepath.Join(dir, "temp.pdf"), p)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(b))
}

func TestDownloadUsesDefaultDirAndOverwrites(t *testing.T) {
	body := "first"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := localDownloader(dir)
	p, err := d.Execute(context.Background(), tools.Arguments{"url": srv.URL + "/notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes.txt"), p)

	body = "second"
	_, err = d.Execute(context.Background(), tools.Arguments{"url": srv.URL + "/notes.txt"})
	require.NoError(t, err)
	b, _ := os.ReadFile(p)
	assert.Equal(t, "second", string(b))
}

func TestDownloadHTTPErrorIsToolFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	reg := tools.NewRegistry().MustRegister(localDownloader(t.TempDir()))
	res := tools.NewInvoker(reg, tools.DefaultToolConfig()).Invoke(context.Background(), conversation.ToolCallRequest{
		ID: "c1", Name: "download_file", Arguments: map[string]any{"url": srv.URL + "/missing"},
	})
	require.NotNil(t, res.Failure)
	assert.Equal(t, tools.FailureProvider, res.Failure.Kind)
	assert.Equal(t, "Error: download: HTTP error: 404", res.Text())
}

func TestDownloadNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := localDownloader(t.TempDir()).Download(context.Background(), url+"/x.bin", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Network error")
}

func TestDownloadRejectsLocalTargetsByDefault(t *testing.T) {
	d := NewDownloader(storage.NewLocalStorage(""), time.Second)
	_, err := d.Download(context.Background(), "http://127.0.0.1:1/secret", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, security.ErrDisallowedURL)

	_, err = d.Download(context.Background(), "file:///etc/passwd", t.TempDir())
	assert.ErrorIs(t, err, security.ErrDisallowedURL)
}

func TestDownloadEnforcesSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	_, err := localDownloader(t.TempDir(), WithMaxBytes(10)).Download(context.Background(), srv.URL+"/big.txt", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 10 bytes")
}
