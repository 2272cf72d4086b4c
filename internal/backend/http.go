package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/pkg/logger"
)

// HTTPClient talks to the chat backend's REST surface with bearer
// authorization from the injected token source.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	tokens  TokenSource
	logger  *logger.Logger
}

// NewHTTPClient creates a backend client for the given base URL.
func NewHTTPClient(baseURL string, tokens TokenSource, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		logger:  log,
	}
}

var _ Client = (*HTTPClient)(nil)

// do issues one authorized JSON request. out may be nil for calls whose
// body is not needed.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// ListConversations implements Client.
func (c *HTTPClient) ListConversations(ctx context.Context, filters model.ListFilters) ([]model.Conversation, error) {
	query := url.Values{}
	if filters.Status != nil {
		query.Set("status", string(*filters.Status))
	}
	if filters.Priority != nil {
		query.Set("priority", string(*filters.Priority))
	}
	if filters.Archived {
		query.Set("archived", "true")
	}

	var out []model.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversation implements Client.
func (c *HTTPClient) GetConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateConversation implements Client.
func (c *HTTPClient) CreateConversation(ctx context.Context, subject, initialMessage string, priority model.Priority) (*model.Conversation, error) {
	req := model.CreateConversationRequest{
		Subject:  subject,
		Message:  initialMessage,
		Priority: priority,
	}
	var out model.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/v1/conversations", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage implements Client.
func (c *HTTPClient) SendMessage(ctx context.Context, conversationID int64, text string) (*model.Message, error) {
	req := model.SendMessageRequest{Message: text}
	var out model.Message
	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversationID)
	if err := c.do(ctx, http.MethodPost, path, nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateConversation implements Client.
func (c *HTTPClient) UpdateConversation(ctx context.Context, id int64, fields model.UpdateFields) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.do(ctx, http.MethodPut, "/api/v1/conversations/"+strconv.FormatInt(id, 10), nil, &fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation implements Client.
func (c *HTTPClient) DeleteConversation(ctx context.Context, id int64, deleteType model.DeleteType) error {
	query := url.Values{"delete_type": []string{string(deleteType)}}
	var out model.DeleteConversationResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/conversations/"+strconv.FormatInt(id, 10), query, nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return &StatusError{Code: http.StatusOK, Body: out.Message}
	}
	return nil
}

// MarkRead implements Client.
func (c *HTTPClient) MarkRead(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/api/v1/conversations/%d/read", conversationID)
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// GetProfile implements Client. The profile endpoint is tried first with
// a direct user lookup as fallback.
func (c *HTTPClient) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var out model.Profile
	err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+url.PathEscape(userID), nil, nil, &out)
	if err == nil {
		return &out, nil
	}

	if fallbackErr := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(userID), nil, nil, &out); fallbackErr == nil {
		return &out, nil
	}
	return nil, err
}
