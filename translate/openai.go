package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAI translates through any OpenAI-compatible chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.New("openai: missing API key")
	}
	config := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		config.BaseURL = cfg.OpenAIBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	config.HTTPClient = &http.Client{Timeout: timeout}
	model := cfg.OpenAIModel
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(config), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Translate(ctx context.Context, text string, pair LanguagePair) (string, error) {
	if err := validate(text); err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Translate the user's text from %s to %s. Reply with the translation only, no quotes or commentary.",
		languageName(pair.Source), languageName(pair.Target))
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", ErrTranslationFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices", ErrTranslationFailure)
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%w: openai: empty reply", ErrTranslationFailure)
	}
	return out, nil
}
