package toolbox

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
	"github.com/go-go-golems/gaia/pkg/security"
	"github.com/go-go-golems/gaia/pkg/toolbox/storage"
)

// contentTypeNames maps content types to default file names. Entries are
// matched in order, so specific text types come before the generic text/ rule.
var contentTypeNames = []struct {
	match []string
	name  string
}{
	{[]string{"json"}, "temp.json"},
	{[]string{"application/pdf"}, "temp.pdf"},
	{[]string{"image/png"}, "temp.png"},
	{[]string{"image/jpeg", "image/jpg"}, "temp.jpg"},
	{[]string{"text/html"}, "temp.html"},
	{[]string{"application/xml", "text/xml"}, "temp.xml"},
	{[]string{"text/csv"}, "temp.csv"},
	{[]string{"text/"}, "temp.txt"},
}

const defaultDownloadName = "temp.txt"

// InferFilename picks the stored name of a download: the URL basename when
// it has an extension, else a name derived from the content type, else from
// the first bytes of the body, else temp.txt.
func InferFilename(rawURL, contentType string, body []byte) string {
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && strings.Contains(base, ".") {
			return base
		}
	}

	ct := strings.ToLower(contentType)
	for _, e := range contentTypeNames {
		for _, m := range e.match {
			if strings.Contains(ct, m) {
				return e.name
			}
		}
	}

	preview := body
	if len(preview) > 100 {
		preview = preview[:100]
	}
	preview = bytes.TrimSpace(preview)
	switch {
	case bytes.HasPrefix(preview, []byte("{")), bytes.HasPrefix(preview, []byte("[")):
		return "temp.json"
	case bytes.HasPrefix(preview, []byte("<")):
		return "temp.html"
	}
	return defaultDownloadName
}

// Downloader fetches a URL and stores the body.
type Downloader struct {
	client     *http.Client
	storage    storage.Storage
	defaultDir string
	maxBytes   int64
	policy     security.OutboundURLOptions
}

var _ tools.Tool = (*Downloader)(nil)

type DownloaderOption func(*Downloader)

func WithDownloadDir(dir string) DownloaderOption {
	return func(d *Downloader) { d.defaultDir = dir }
}

func WithMaxBytes(n int64) DownloaderOption {
	return func(d *Downloader) { d.maxBytes = n }
}

func WithURLPolicy(p security.OutboundURLOptions) DownloaderOption {
	return func(d *Downloader) { d.policy = p }
}

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(rt http.RoundTripper) DownloaderOption {
	return func(d *Downloader) { d.client.Transport = rt }
}

func NewDownloader(s storage.Storage, timeout time.Duration, opts ...DownloaderOption) *Downloader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	d := &Downloader{
		client:     &http.Client{Timeout: timeout},
		storage:    s,
		defaultDir: ".",
		maxBytes:   50 << 20,
		policy:     security.OutboundURLOptions{AllowHTTP: true},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.client.CheckRedirect = security.CheckRedirect(d.policy, 10)
	return d
}

func (d *Downloader) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "download_file",
		Description: "Downloads the file at the given URL and returns the path it was saved to.",
		Parameters: []tools.Parameter{
			{Name: "url", Type: tools.TypeString, Description: "The URL of the file.", Required: true},
			{Name: "save_dir", Type: tools.TypeString, Description: "Directory to save the downloaded file in."},
		},
	}
}

func (d *Downloader) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	rawURL, _ := args.String("url")
	dir := args.StringOr("save_dir", d.defaultDir)
	return d.Download(ctx, rawURL, dir)
}

// Download fetches rawURL and saves it under dir.
func (d *Downloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	if err := security.ValidateOutboundURL(rawURL, d.policy); err != nil {
		return "", tools.NewProviderError("download", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", tools.NewProviderError("download", errors.Wrap(err, "Network error"))
	}
	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", tools.NewProviderError("download", errors.Wrap(err, "Network error"))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", tools.NewProviderError("download", errors.Errorf("HTTP error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return "", tools.NewProviderError("download", errors.Wrap(err, "Network error"))
	}
	if int64(len(body)) > d.maxBytes {
		return "", tools.NewProviderError("download", errors.Errorf("file exceeds %d bytes", d.maxBytes))
	}

	name := InferFilename(rawURL, resp.Header.Get("Content-Type"), body)
	stored, err := d.storage.Save(ctx, body, dir, name)
	if err != nil {
		return "", err
	}
	log.Debug().Str("url", rawURL).Str("path", stored).Int("bytes", len(body)).Msg("downloaded file")
	return stored, nil
}
