package openai

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/gaia/pkg/steps/ai/settings"
)

// AudioTranscriber is the part of the go-openai client used for speech to text.
type AudioTranscriber interface {
	CreateTranscription(ctx context.Context, req go_openai.AudioRequest) (go_openai.AudioResponse, error)
}

type TranscriptionClient struct {
	client      AudioTranscriber
	model       string
	prompt      string
	language    string
	temperature float32
}

type ClientOption func(*TranscriptionClient)

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		c.model = model
	}
}

func WithPrompt(prompt string) ClientOption {
	return func(c *TranscriptionClient) {
		c.prompt = prompt
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) {
		c.language = language
	}
}

func WithTemperature(temperature float32) ClientOption {
	return func(c *TranscriptionClient) {
		c.temperature = temperature
	}
}

func NewTranscriptionClient(client AudioTranscriber, opts ...ClientOption) *TranscriptionClient {
	tc := &TranscriptionClient{
		client: client,
		model:  "gpt-4o-transcribe",
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// TranscriptionOptions converts the transcription settings into client options.
func TranscriptionOptions(ts *settings.TranscriptionSettings) []ClientOption {
	if ts == nil {
		return nil
	}
	opts := []ClientOption{}
	if ts.Model != "" {
		opts = append(opts, WithModel(ts.Model))
	}
	if ts.Language != "" {
		opts = append(opts, WithLanguage(ts.Language))
	}
	if ts.Prompt != "" {
		opts = append(opts, WithPrompt(ts.Prompt))
	}
	if ts.Temperature != nil {
		opts = append(opts, WithTemperature(float32(*ts.Temperature)))
	}
	return opts
}

// TranscribeFile returns the plain text transcription of the audio file at path.
func (tc *TranscriptionClient) TranscribeFile(ctx context.Context, path string) (string, error) {
	req := go_openai.AudioRequest{
		Model:       tc.model,
		FilePath:    path,
		Prompt:      tc.prompt,
		Temperature: tc.temperature,
		Language:    tc.language,
		Format:      go_openai.AudioResponseFormatText,
	}

	log.Debug().Str("file", path).Str("model", tc.model).Msg("transcribing audio file")

	resp, err := tc.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "could not transcribe %s", path)
	}
	return strings.TrimSpace(resp.Text), nil
}
