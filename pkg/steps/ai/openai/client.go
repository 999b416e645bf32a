package openai

import (
	"net/http"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/gaia/pkg/steps/ai/settings"
)

// NewClient builds a go-openai client from the api and client settings.
func NewClient(api *settings.APISettings, cs *settings.ClientSettings) (*go_openai.Client, error) {
	if api == nil || api.OpenAIAPIKey == "" {
		return nil, errors.New("no openai api key")
	}
	if cs == nil {
		cs = settings.NewClientSettings()
	}
	config := go_openai.DefaultConfig(api.OpenAIAPIKey)
	if api.OpenAIBaseURL != "" {
		config.BaseURL = api.OpenAIBaseURL
	}
	config.HTTPClient = &userAgentDoer{client: cs.Client(), userAgent: cs.UserAgent}
	return go_openai.NewClientWithConfig(config), nil
}

type userAgentDoer struct {
	client    *http.Client
	userAgent string
}

func (d *userAgentDoer) Do(req *http.Request) (*http.Response, error) {
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	return d.client.Do(req)
}
