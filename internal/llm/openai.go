package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// #region openai-client

// OpenAIClient backs the Inferencer interface with an OpenAI chat model.
// Used when OPENAI_API_KEY is set instead of a local inference URL.
type OpenAIClient struct {
	client openai.Client
	model  openai.ChatModel
	system string
}

// NewOpenAIClient creates an OpenAI-backed inferencer. model may be empty
// to use gpt-4o, matching the original hosted-inference path.
func NewOpenAIClient(apiKey string, model openai.ChatModel, systemPrompt string) *OpenAIClient {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		system: systemPrompt,
	}
}

// #endregion openai-client

// #region infer
// Infer sends the prompt as a user message and returns the completion text.
func (c *OpenAIClient) Infer(ctx context.Context, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if c.system != "" {
		messages = append(messages, openai.SystemMessage(c.system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("chat completion: empty message content")
	}
	return content, nil
}
// #endregion infer
