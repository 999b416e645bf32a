package settings

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// BindEnvironment wires GAIA_* variables plus the conventional provider
// variables into v.
func BindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix("GAIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindings := [][]string{
		{"api.openai-api-key", "GAIA_OPENAI_API_KEY", "OPENAI_API_KEY"},
		{"api.openai-base-url", "GAIA_OPENAI_BASE_URL", "OPENAI_BASE_URL"},
		{"api.tavily-api-key", "GAIA_TAVILY_API_KEY", "TAVILY_API_KEY", "tavily_api_key"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b...); err != nil {
			return errors.Wrapf(err, "could not bind %s", b[0])
		}
	}
	return nil
}

// NewSettingsFromViper starts from the config file named by v (if any) and
// applies every key v has a value for.
func NewSettingsFromViper(v *viper.Viper) (*Settings, error) {
	s := NewSettings()
	if f := v.GetString("config"); f != "" {
		loaded, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		s = loaded
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("api.openai-api-key", &s.API.OpenAIAPIKey)
	str("api.openai-base-url", &s.API.OpenAIBaseURL)
	str("api.tavily-api-key", &s.API.TavilyAPIKey)
	str("api.tavily-base-url", &s.API.TavilyBaseURL)
	str("chat.model", &s.Chat.Model)
	str("chat.system-prompt", &s.Chat.SystemPrompt)
	str("vision.model", &s.Vision.Model)
	str("transcription.model", &s.Transcription.Model)
	str("transcription.language", &s.Transcription.Language)
	str("transcription.prompt", &s.Transcription.Prompt)
	str("download.dir", &s.Download.Dir)
	str("upload.dir", &s.Upload.Dir)
	str("wikipedia.language", &s.Wikipedia.Language)
	num("loop.max-iterations", &s.Loop.MaxIterations)
	num("loop.max-parallel-tools", &s.Loop.MaxParallelTools)
	num("search.max-results", &s.Search.MaxResults)
	num("wikipedia.max-docs", &s.Wikipedia.MaxDocs)

	if v.IsSet("chat.temperature") {
		t := v.GetFloat64("chat.temperature")
		s.Chat.Temperature = &t
	}
	if v.IsSet("transcription.temperature") {
		t := v.GetFloat64("transcription.temperature")
		s.Transcription.Temperature = &t
	}
	if v.IsSet("loop.tool-timeout") {
		s.Loop.ToolTimeout = v.GetDuration("loop.tool-timeout")
	}
	if v.IsSet("client.timeout") {
		s.Client.Timeout = v.GetDuration("client.timeout")
	}
	if v.IsSet("download.allow-local-networks") {
		s.Download.AllowLocalNetworks = v.GetBool("download.allow-local-networks")
	}
	return s, nil
}
