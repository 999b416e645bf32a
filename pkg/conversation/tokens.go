package conversation

import (
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// per-message framing overhead used by the chat completion format
const (
	tokensPerMessage = 4
	tokensPerReply   = 3
)

// CodecForModel returns the tokenizer codec for model, falling back to
// cl100k_base for models the tokenizer does not know about.
func CodecForModel(model string) (tokenizer.Codec, error) {
	if model != "" {
		if c, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
			return c, nil
		}
	}
	c, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "could not load cl100k_base codec")
	}
	return c, nil
}

// CountTokens estimates the prompt size of msgs for model.
func CountTokens(model string, msgs []Message) (int, error) {
	codec, err := CodecForModel(model)
	if err != nil {
		return 0, err
	}
	count := func(s string) (int, error) {
		if s == "" {
			return 0, nil
		}
		ids, _, err := codec.Encode(s)
		if err != nil {
			return 0, errors.Wrap(err, "could not encode message")
		}
		return len(ids), nil
	}

	total := 0
	for _, m := range msgs {
		total += tokensPerMessage
		for _, s := range messageTexts(m) {
			n, err := count(s)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	if len(msgs) > 0 {
		total += tokensPerReply
	}
	return total, nil
}

func messageTexts(m Message) []string {
	texts := []string{string(m.Role), m.Content}
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			texts = append(texts, p.Text)
		}
	}
	for _, c := range m.ToolCalls {
		texts = append(texts, c.Name)
		for k, v := range c.Arguments {
			if s, ok := v.(string); ok {
				texts = append(texts, k, s)
			} else {
				texts = append(texts, k)
			}
		}
	}
	return texts
}
