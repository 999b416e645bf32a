package security

import (
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// OutboundURLOptions configures which targets tools may fetch from.
type OutboundURLOptions struct {
	// AllowHTTP permits plain HTTP URLs. HTTPS is always allowed.
	AllowHTTP bool
	// AllowLocalNetworks permits loopback, private and link-local targets.
	AllowLocalNetworks bool
}

// ErrDisallowedURL is the cause of every rejection by ValidateOutboundURL.
var ErrDisallowedURL = errors.New("url not allowed")

// ValidateOutboundURL rejects unsupported schemes and, unless allowed,
// local-network targets. IP literals are checked without DNS lookups.
func ValidateOutboundURL(rawURL string, opts OutboundURLOptions) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(ErrDisallowedURL, "invalid URL: %v", err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !opts.AllowHTTP {
			return errors.Wrap(ErrDisallowedURL, "http scheme is not allowed")
		}
	default:
		return errors.Wrapf(ErrDisallowedURL, "unsupported URL scheme %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.Wrap(ErrDisallowedURL, "URL host is required")
	}

	if !opts.AllowLocalNetworks {
		if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
			return errors.Wrapf(ErrDisallowedURL, "local hostname %q is not allowed", host)
		}
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	if addr.Zone() != "" && !opts.AllowLocalNetworks {
		return errors.Wrapf(ErrDisallowedURL, "zoned IP address %q is not allowed", host)
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() {
		return errors.Wrapf(ErrDisallowedURL, "disallowed IP address %q", host)
	}
	if !opts.AllowLocalNetworks {
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
			return errors.Wrapf(ErrDisallowedURL, "local network IP %q is not allowed", host)
		}
	}
	return nil
}

// CheckRedirect returns an http.Client redirect policy applying the same
// rules to every hop, with at most maxRedirects hops.
func CheckRedirect(opts OutboundURLOptions, maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.Errorf("stopped after %d redirects", maxRedirects)
		}
		return ValidateOutboundURL(req.URL.String(), opts)
	}
}
