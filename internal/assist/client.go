// Package assist drafts suggested support replies from conversation
// history, behind a provider-switchable LLM client.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/commercekit/support-chat/internal/model"
)

// Client is the interface for reply suggestion providers.
type Client interface {
	// SuggestReply drafts an agent reply for the conversation.
	SuggestReply(ctx context.Context, conv *model.Conversation) (string, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of suggestion provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a suggestion client for the given provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return nil, fmt.Errorf("unknown suggestion provider %q", provider)
	}
}

const systemPrompt = "You are a support agent for an e-commerce storefront. " +
	"Draft a concise, friendly reply to the customer's latest message. " +
	"Reply with the message text only."

// chatMessage is the provider-neutral prompt message.
type chatMessage struct {
	role    string
	content string
}

// promptFromConversation maps chat history onto LLM roles: customer
// messages become user turns, agent messages become assistant turns.
// The window is capped at the most recent turns.
func promptFromConversation(conv *model.Conversation) []chatMessage {
	const maxTurns = 20

	msgs := conv.Messages
	if len(msgs) > maxTurns {
		msgs = msgs[len(msgs)-maxTurns:]
	}

	out := make([]chatMessage, 0, len(msgs)+1)
	subject := strings.TrimSpace(conv.Subject)
	if subject != "" {
		out = append(out, chatMessage{role: "user", content: "Subject: " + subject})
	}
	for _, m := range msgs {
		role := "user"
		if m.IsAdmin {
			role = "assistant"
		}
		out = append(out, chatMessage{role: role, content: m.Body})
	}
	return out
}
