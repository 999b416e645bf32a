// Package toolbox contains the concrete tools offered to the model.
package toolbox

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
	"github.com/go-go-golems/gaia/pkg/security"
	"github.com/go-go-golems/gaia/pkg/steps/ai/openai"
	"github.com/go-go-golems/gaia/pkg/steps/ai/settings"
	"github.com/go-go-golems/gaia/pkg/toolbox/storage"
)

// Dependencies are the collaborators of the default tools. Nil fields are
// built from Settings.
type Dependencies struct {
	Settings     *settings.Settings
	HTTPClient   *http.Client
	Vision       VisionService
	SpeechToText SpeechToText
	Transcripts  TranscriptProvider
	Storage      storage.Storage
}

// NewDefaultRegistry registers every tool in the order presented to the model.
func NewDefaultRegistry(deps Dependencies) (*tools.Registry, error) {
	s := deps.Settings
	if s == nil {
		return nil, errors.New("toolbox: no settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = s.Client.Client()
	}

	if deps.Vision == nil || deps.SpeechToText == nil {
		client, err := openai.NewClient(s.API, s.Client)
		if err != nil {
			return nil, err
		}
		if deps.Vision == nil {
			deps.Vision = openai.NewVisionClient(client, s.Vision.Model)
		}
		if deps.SpeechToText == nil {
			deps.SpeechToText = openai.NewTranscriptionClient(client, openai.TranscriptionOptions(s.Transcription)...)
		}
	}
	if deps.Transcripts == nil {
		deps.Transcripts = NewYouTubeProvider(s.YouTube.BaseURL, s.YouTube.Languages, httpClient)
	}
	if deps.Storage == nil {
		deps.Storage = storage.NewLocalStorage("")
	}

	wiki := NewWikiClient(s.Wikipedia.SiteURL(), httpClient)
	downloadOpts := []DownloaderOption{
		WithDownloadDir(s.Download.Dir),
		WithMaxBytes(s.Download.MaxBytes),
		WithURLPolicy(security.OutboundURLOptions{
			AllowHTTP:          s.Download.AllowHTTP,
			AllowLocalNetworks: s.Download.AllowLocalNetworks,
		}),
	}
	if deps.HTTPClient != nil && deps.HTTPClient.Transport != nil {
		downloadOpts = append(downloadOpts, WithTransport(deps.HTTPClient.Transport))
	}

	r := tools.NewRegistry()
	for _, t := range []tools.Tool{
		NewWebSearch(NewTavilyClient(s.API.TavilyBaseURL, s.API.TavilyAPIKey, httpClient), s.Search.MaxResults),
		NewWikiSummary(wiki, s.Wikipedia.MaxDocs),
		NewWikiSearch(wiki, s.Wikipedia.MaxDocs, s.Wikipedia.MaxChars),
		NewYouTubeTranscript(deps.Transcripts),
		NewImageInterpreter(deps.Vision),
		NewFileInterpreter(deps.Vision, nil),
		NewDownloader(deps.Storage, s.Download.Timeout, downloadOpts...),
		NewAudioTranscriber(deps.SpeechToText),
	} {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
