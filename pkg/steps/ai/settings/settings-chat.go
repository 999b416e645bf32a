package settings

import "github.com/huandu/go-clone"

const (
	DefaultChatModel          = "gpt-4.1"
	DefaultTranscriptionModel = "gpt-4o-transcribe"
)

type ChatSettings struct {
	Model             string   `yaml:"model,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	MaxResponseTokens *int     `yaml:"max-response-tokens,omitempty"`
	SystemPrompt      string   `yaml:"system-prompt,omitempty"`
}

func NewChatSettings() *ChatSettings {
	return &ChatSettings{
		Model: DefaultChatModel,
	}
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}

// VisionSettings configures the model used by the image and document tools.
type VisionSettings struct {
	Model string `yaml:"model,omitempty"`
}

func NewVisionSettings() *VisionSettings {
	return &VisionSettings{Model: DefaultChatModel}
}

// TranscriptionSettings configures the speech to text model.
type TranscriptionSettings struct {
	Model string `yaml:"model,omitempty"`
	// Language is an ISO-639-1 hint, empty lets the model detect it
	Language    string   `yaml:"language,omitempty"`
	Prompt      string   `yaml:"prompt,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

func NewTranscriptionSettings() *TranscriptionSettings {
	return &TranscriptionSettings{Model: DefaultTranscriptionModel}
}
