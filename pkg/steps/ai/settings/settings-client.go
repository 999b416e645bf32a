package settings

import (
	"net/http"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

const DefaultUserAgent = "gaia/0.1"

// ClientSettings configures the HTTP clients of every provider.
type ClientSettings struct {
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	UserAgent  string        `yaml:"user-agent,omitempty"`
	HTTPClient *http.Client  `yaml:"-" json:"-"`
}

func NewClientSettings() *ClientSettings {
	return &ClientSettings{
		Timeout:   60 * time.Second,
		UserAgent: DefaultUserAgent,
	}
}

// UnmarshalYAML accepts the timeout either as a duration string or as an
// integer number of seconds.
func (cs *ClientSettings) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		Timeout   *yaml.Node `yaml:"timeout,omitempty"`
		UserAgent string     `yaml:"user-agent,omitempty"`
	}{
		UserAgent: cs.UserAgent,
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	cs.UserAgent = aux.UserAgent
	if aux.Timeout != nil {
		d, err := decodeDuration(aux.Timeout)
		if err != nil {
			return err
		}
		cs.Timeout = d
	}
	return nil
}

func decodeDuration(n *yaml.Node) (time.Duration, error) {
	var seconds int
	if err := n.Decode(&seconds); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	var s string
	if err := n.Decode(&s); err != nil {
		return 0, err
	}
	return time.ParseDuration(s)
}

// Client returns the configured HTTP client, or a new one carrying the
// configured timeout.
func (cs *ClientSettings) Client() *http.Client {
	if cs.HTTPClient != nil {
		return cs.HTTPClient
	}
	return &http.Client{Timeout: cs.Timeout}
}

func (cs *ClientSettings) Clone() *ClientSettings {
	return clone.Clone(cs).(*ClientSettings)
}
