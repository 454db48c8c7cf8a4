package match

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
)

// LangChainCompleter adapts any langchaingo chat model to Completer.
type LangChainCompleter struct {
	Model llms.Model
}

func NewLangChainCompleter(model llms.Model) *LangChainCompleter {
	return &LangChainCompleter{Model: model}
}

func (c *LangChainCompleter) Complete(ctx context.Context, system, prompt string, opts CallOptions) (string, error) {
	if c == nil || c.Model == nil {
		return "", errors.New("language model is not initialized")
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.Model.GenerateContent(ctx, messages,
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", errors.New("language model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
