package openai

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/inference/engine"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
	"github.com/go-go-golems/gaia/pkg/steps/ai/settings"
)

// ChatCompleter is the part of the go-openai client the backend uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
}

// Backend is an engine.Backend on top of the chat completions API.
type Backend struct {
	client ChatCompleter
	chat   *settings.ChatSettings
}

var _ engine.Backend = (*Backend)(nil)

func NewBackend(client ChatCompleter, chat *settings.ChatSettings) *Backend {
	if chat == nil {
		chat = settings.NewChatSettings()
	}
	return &Backend{client: client, chat: chat}
}

// MakeCompletionRequest builds the request for history and specs.
func (b *Backend) MakeCompletionRequest(history []conversation.Message, specs []tools.ToolSpec) (*go_openai.ChatCompletionRequest, error) {
	if b.chat.Model == "" {
		return nil, errors.New("no model specified")
	}
	msgs, err := MessagesToOpenAI(history)
	if err != nil {
		return nil, err
	}
	req := &go_openai.ChatCompletionRequest{
		Model:    b.chat.Model,
		Messages: msgs,
		Tools:    ToolsToOpenAI(specs),
	}
	if b.chat.Temperature != nil {
		req.Temperature = float32(*b.chat.Temperature)
	}
	if b.chat.MaxResponseTokens != nil {
		req.MaxTokens = *b.chat.MaxResponseTokens
	}
	return req, nil
}

func (b *Backend) Complete(ctx context.Context, history []conversation.Message, specs []tools.ToolSpec) (conversation.Message, error) {
	req, err := b.MakeCompletionRequest(history, specs)
	if err != nil {
		return conversation.Message{}, err
	}

	log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("openai: chat completion request")

	resp, err := b.client.CreateChatCompletion(ctx, *req)
	if err != nil {
		return conversation.Message{}, errors.Wrap(err, "openai chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return conversation.Message{}, engine.ErrEmptyModelResponse
	}

	choice := resp.Choices[0]
	log.Debug().
		Str("finish_reason", string(choice.FinishReason)).
		Int("tool_calls", len(choice.Message.ToolCalls)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai: chat completion response")

	if len(choice.Message.ToolCalls) > 0 {
		return conversation.NewToolCallsMessage(choice.Message.Content, ToolCallsFromOpenAI(choice.Message.ToolCalls)...), nil
	}
	return conversation.NewAssistantMessage(choice.Message.Content), nil
}
