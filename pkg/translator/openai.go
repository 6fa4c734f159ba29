package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider translates via an OpenAI-compatible chat completion endpoint
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

const translateSystemPrompt = `You are a professional news translator.
Translate the user's text from %s to %s.
Rules:
- Return ONLY the translated text, no explanations or quotes.
- Keep placeholders like __TECH_TERM_0__ exactly as they appear, do not translate or alter them.
- Preserve paragraph breaks.
- Keep the tone neutral and journalistic.`

// NewOpenAIProvider creates a chat-completion translator. An empty endpoint
// uses the default OpenAI API base URL.
func NewOpenAIProvider(apiKey, endpoint, model string) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		clientConfig.BaseURL = endpoint
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientConfig), model: model}
}

// Name implements Provider
func (p *OpenAIProvider) Name() string { return "openai" }

// Translate sends each text as its own chat completion. Chat models handle
// one document at a time far more reliably than delimiter-joined batches.
func (p *OpenAIProvider) Translate(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error) {
	system := fmt.Sprintf(translateSystemPrompt, fromLang, toLang)
	results := make([]string, len(texts))
	for i, text := range texts {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       p.model,
			Temperature: 0,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion: empty response")
		}
		results[i] = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	return results, nil
}
