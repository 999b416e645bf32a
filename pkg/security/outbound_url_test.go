package security

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutboundURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		opts OutboundURLOptions
		ok   bool
	}{
		{"https", "https://example.com/file.pdf", OutboundURLOptions{}, true},
		{"http rejected", "http://example.com/", OutboundURLOptions{}, false},
		{"http allowed", "http://example.com/", OutboundURLOptions{AllowHTTP: true}, true},
		{"ftp", "ftp://example.com/x", OutboundURLOptions{AllowHTTP: true}, false},
		{"file", "file:///etc/passwd", OutboundURLOptions{AllowHTTP: true}, false},
		{"no host", "https:///x", OutboundURLOptions{}, false},
		{"localhost", "https://localhost/x", OutboundURLOptions{}, false},
		{"localhost allowed", "https://localhost/x", OutboundURLOptions{AllowLocalNetworks: true}, true},
		{"mdns", "https://printer.local/", OutboundURLOptions{}, false},
		{"loopback", "https://127.0.0.1/", OutboundURLOptions{}, false},
		{"private", "https://10.1.2.3/", OutboundURLOptions{}, false},
		{"mapped loopback", "https://[::ffff:127.0.0.1]/", OutboundURLOptions{}, false},
		{"unspecified", "https://0.0.0.0/", OutboundURLOptions{AllowLocalNetworks: true}, false},
		{"zoned", "https://[fe80::1%25eth0]/", OutboundURLOptions{}, false},
		{"zoned allowed", "https://[fe80::1%25eth0]/", OutboundURLOptions{AllowLocalNetworks: true}, true},
		{"public ip", "https://93.184.216.34/", OutboundURLOptions{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOutboundURL(tc.url, tc.opts)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDisallowedURL))
		})
	}
}

func TestCheckRedirect(t *testing.T) {
	check := CheckRedirect(OutboundURLOptions{}, 2)
	req := func(raw string) *http.Request {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return &http.Request{URL: u}
	}

	assert.NoError(t, check(req("https://example.com/b"), []*http.Request{req("https://example.com/a")}))
	assert.Error(t, check(req("https://127.0.0.1/"), nil))
	assert.Error(t, check(req("https://example.com/c"), []*http.Request{req("https://a"), req("https://b")}))
}
