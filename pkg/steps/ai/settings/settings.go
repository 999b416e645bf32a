package settings

import (
	"io"
	"os"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings is the full runtime configuration of the assistant.
type Settings struct {
	API           *APISettings           `yaml:"api,omitempty"`
	Client        *ClientSettings        `yaml:"client,omitempty"`
	Chat          *ChatSettings          `yaml:"chat,omitempty"`
	Vision        *VisionSettings        `yaml:"vision,omitempty"`
	Transcription *TranscriptionSettings `yaml:"transcription,omitempty"`
	Loop          *LoopSettings          `yaml:"loop,omitempty"`
	Download      *DownloadSettings      `yaml:"download,omitempty"`
	Wikipedia     *WikipediaSettings     `yaml:"wikipedia,omitempty"`
	Search        *SearchSettings        `yaml:"search,omitempty"`
	YouTube       *YouTubeSettings       `yaml:"youtube,omitempty"`
	Upload        *UploadSettings        `yaml:"upload,omitempty"`
}

func NewSettings() *Settings {
	return &Settings{
		API:           NewAPISettings(),
		Client:        NewClientSettings(),
		Chat:          NewChatSettings(),
		Vision:        NewVisionSettings(),
		Transcription: NewTranscriptionSettings(),
		Loop:          NewLoopSettings(),
		Download:      NewDownloadSettings(),
		Wikipedia:     NewWikipediaSettings(),
		Search:        NewSearchSettings(),
		YouTube:       NewYouTubeSettings(),
		Upload:        NewUploadSettings(),
	}
}

// NewSettingsFromYAML decodes r on top of the defaults.
func NewSettingsFromYAML(r io.Reader) (*Settings, error) {
	s := NewSettings()
	if err := yaml.NewDecoder(r).Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	s.fillDefaults()
	return s, nil
}

func LoadFile(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open settings file %s", path)
	}
	defer f.Close()
	return NewSettingsFromYAML(f)
}

// fillDefaults restores sections that a YAML document set to null.
func (s *Settings) fillDefaults() {
	d := NewSettings()
	if s.API == nil {
		s.API = d.API
	}
	if s.Client == nil {
		s.Client = d.Client
	}
	if s.Chat == nil {
		s.Chat = d.Chat
	}
	if s.Vision == nil {
		s.Vision = d.Vision
	}
	if s.Transcription == nil {
		s.Transcription = d.Transcription
	}
	if s.Loop == nil {
		s.Loop = d.Loop
	}
	if s.Download == nil {
		s.Download = d.Download
	}
	if s.Wikipedia == nil {
		s.Wikipedia = d.Wikipedia
	}
	if s.Search == nil {
		s.Search = d.Search
	}
	if s.YouTube == nil {
		s.YouTube = d.YouTube
	}
	if s.Upload == nil {
		s.Upload = d.Upload
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// Validate checks that credentials are present and numeric limits are sane.
// The returned error is always a *ConfigurationError.
func (s *Settings) Validate() error {
	s.fillDefaults()
	switch {
	case s.API.OpenAIAPIKey == "":
		return missing("api.openai-api-key", "OPENAI_API_KEY")
	case s.API.TavilyAPIKey == "":
		return missing("api.tavily-api-key", "TAVILY_API_KEY")
	case s.Chat.Model == "":
		return missing("chat.model", "GAIA_CHAT_MODEL")
	case s.Chat.Temperature != nil && (*s.Chat.Temperature < 0 || *s.Chat.Temperature > 2):
		return invalid("chat.temperature", "must be between 0 and 2")
	case s.Chat.MaxResponseTokens != nil && *s.Chat.MaxResponseTokens <= 0:
		return invalid("chat.max-response-tokens", "must be positive")
	case s.Loop.MaxIterations <= 0:
		return invalid("loop.max-iterations", "must be positive")
	case s.Loop.MaxParallelTools <= 0:
		return invalid("loop.max-parallel-tools", "must be positive")
	case s.Loop.ToolTimeout < 0:
		return invalid("loop.tool-timeout", "must not be negative")
	case s.Download.Timeout <= 0:
		return invalid("download.timeout", "must be positive")
	case s.Download.MaxBytes <= 0:
		return invalid("download.max-bytes", "must be positive")
	case s.Wikipedia.MaxDocs <= 0:
		return invalid("wikipedia.max-docs", "must be positive")
	case s.Search.MaxResults <= 0:
		return invalid("search.max-results", "must be positive")
	}
	return nil
}
