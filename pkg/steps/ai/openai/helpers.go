package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

// DataURL encodes data as a base64 data URL of the given media type.
func DataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// MessagesToOpenAI converts a conversation history into chat completion
// messages. Image parts are inlined as data URLs, file parts are announced
// by path so the model can hand them to a tool.
func MessagesToOpenAI(history []conversation.Message) ([]go_openai.ChatCompletionMessage, error) {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case conversation.RoleTool:
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})

		case conversation.RoleAssistant:
			msg := go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, c := range m.ToolCalls {
				args := "{}"
				if len(c.Arguments) > 0 {
					b, err := json.Marshal(c.Arguments)
					if err != nil {
						return nil, errors.Wrapf(err, "could not marshal arguments of %s", c.Name)
					}
					args = string(b)
				}
				msg.ToolCalls = append(msg.ToolCalls, go_openai.ToolCall{
					ID:   c.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      c.Name,
						Arguments: args,
					},
				})
			}
			msgs = append(msgs, msg)

		case conversation.RoleSystem, conversation.RoleUser:
			msg, err := contentMessage(m)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)

		default:
			return nil, errors.Errorf("unsupported role %q", m.Role)
		}
	}
	return msgs, nil
}

func contentMessage(m conversation.Message) (go_openai.ChatCompletionMessage, error) {
	role := go_openai.ChatMessageRoleUser
	if m.Role == conversation.RoleSystem {
		role = go_openai.ChatMessageRoleSystem
	}

	hasImage := false
	for _, p := range m.Parts {
		if p.Kind == conversation.PartKindImage {
			hasImage = true
			break
		}
	}

	text := []string{}
	if strings.TrimSpace(m.Content) != "" {
		text = append(text, m.Content)
	}
	for _, p := range m.Parts {
		switch p.Kind {
		case conversation.PartKindText:
			text = append(text, p.Text)
		case conversation.PartKindFile:
			text = append(text, "File uploaded in path: "+firstNonEmpty(p.Path, p.URL))
		}
	}

	if !hasImage {
		return go_openai.ChatCompletionMessage{Role: role, Content: strings.Join(text, "\n")}, nil
	}

	parts := []go_openai.ChatMessagePart{}
	if len(text) > 0 {
		parts = append(parts, go_openai.ChatMessagePart{
			Type: go_openai.ChatMessagePartTypeText,
			Text: strings.Join(text, "\n"),
		})
	}
	for _, p := range m.Parts {
		if p.Kind != conversation.PartKindImage {
			continue
		}
		url, err := imageURL(p)
		if err != nil {
			return go_openai.ChatCompletionMessage{}, err
		}
		parts = append(parts, go_openai.ChatMessagePart{
			Type: go_openai.ChatMessagePartTypeImageURL,
			ImageURL: &go_openai.ChatMessageImageURL{
				URL:    url,
				Detail: go_openai.ImageURLDetailAuto,
			},
		})
	}
	return go_openai.ChatCompletionMessage{Role: role, MultiContent: parts}, nil
}

func imageURL(p conversation.Part) (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", errors.Wrapf(err, "could not read image %s", p.Path)
	}
	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return DataURL(mimeType, data), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ToolsToOpenAI renders tool specs as function tools.
func ToolsToOpenAI(specs []tools.ToolSpec) []go_openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]go_openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Schema(),
			},
		})
	}
	return out
}

// ToolCallsFromOpenAI decodes the function calls of a response. Arguments
// that are not a JSON object decode to an empty map so that argument
// validation reports the problem to the model.
func ToolCallsFromOpenAI(calls []go_openai.ToolCall) []conversation.ToolCallRequest {
	out := make([]conversation.ToolCallRequest, 0, len(calls))
	for _, c := range calls {
		args := map[string]any{}
		if raw := strings.TrimSpace(c.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				log.Warn().Err(err).Str("tool", c.Function.Name).Str("arguments", raw).Msg("could not decode tool call arguments")
				args = map[string]any{}
			}
		}
		out = append(out, conversation.ToolCallRequest{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: args,
		})
	}
	return out
}
