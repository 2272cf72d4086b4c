package assist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/pkg/metrics"
)

const openAIModel = "gpt-4o-mini"

// OpenAIClient drafts replies with the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI suggestion client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// SuggestReply drafts an agent reply for the conversation.
func (c *OpenAIClient) SuggestReply(ctx context.Context, conv *model.Conversation) (string, error) {
	start := time.Now()

	prompt := promptFromConversation(conv)
	messages := make([]openai.ChatCompletionMessage, 0, len(prompt)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range prompt {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.role,
			Content: msg.content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     openAIModel,
		Messages:  messages,
		MaxTokens: 1024,
	})
	if err != nil {
		metrics.RecordSuggest(c.Name(), "error", time.Since(start).Seconds())
		return "", err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	metrics.RecordSuggest(c.Name(), "success", time.Since(start).Seconds())
	return strings.TrimSpace(content), nil
}
