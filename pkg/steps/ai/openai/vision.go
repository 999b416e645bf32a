package openai

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// VisionClient answers single questions about an image or a document with
// one stateless completion.
type VisionClient struct {
	client ChatCompleter
	model  string
}

func NewVisionClient(client ChatCompleter, model string) *VisionClient {
	return &VisionClient{client: client, model: model}
}

// DescribeImage sends query together with the image as a data URL.
func (v *VisionClient) DescribeImage(ctx context.Context, query, mimeType string, data []byte) (string, error) {
	return v.complete(ctx, go_openai.ChatCompletionMessage{
		Role: go_openai.ChatMessageRoleUser,
		MultiContent: []go_openai.ChatMessagePart{
			{Type: go_openai.ChatMessagePartTypeText, Text: query},
			{
				Type: go_openai.ChatMessagePartTypeImageURL,
				ImageURL: &go_openai.ChatMessageImageURL{
					URL:    DataURL(mimeType, data),
					Detail: go_openai.ImageURLDetailAuto,
				},
			},
		},
	})
}

// AnswerFromDocument sends query followed by the extracted text of a
// document named name.
func (v *VisionClient) AnswerFromDocument(ctx context.Context, query, name, text string) (string, error) {
	var sb strings.Builder
	sb.WriteString(query)
	sb.WriteString("\n\n<Document name=\"")
	sb.WriteString(name)
	sb.WriteString("\">\n")
	sb.WriteString(text)
	sb.WriteString("\n</Document>")
	return v.complete(ctx, go_openai.ChatCompletionMessage{
		Role:    go_openai.ChatMessageRoleUser,
		Content: sb.String(),
	})
}

func (v *VisionClient) complete(ctx context.Context, msg go_openai.ChatCompletionMessage) (string, error) {
	resp, err := v.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:    v.model,
		Messages: []go_openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return "", errors.Wrap(err, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
