package assist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/pkg/metrics"
)

const anthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient drafts replies with the Anthropic API.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic suggestion client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// SuggestReply drafts an agent reply for the conversation.
func (c *AnthropicClient) SuggestReply(ctx context.Context, conv *model.Conversation) (string, error) {
	start := time.Now()

	prompt := promptFromConversation(conv)
	messages := make([]anthropic.MessageParam, len(prompt))
	for i, msg := range prompt {
		messages[i] = anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.content),
				},
			}),
		}
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(anthropicModel),
		MaxTokens: anthropic.F(int64(1024)),
		System: anthropic.F([]anthropic.TextBlockParam{
			{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(systemPrompt),
			},
		}),
		Messages: anthropic.F(messages),
	})
	if err != nil {
		metrics.RecordSuggest(c.Name(), "error", time.Since(start).Seconds())
		return "", err
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content.WriteString(block.Text)
		}
	}

	metrics.RecordSuggest(c.Name(), "success", time.Since(start).Seconds())
	return strings.TrimSpace(content.String()), nil
}
