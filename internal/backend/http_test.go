package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/pkg/logger"
)

func TestHTTPClientRequiresToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, TokenFunc(func(context.Context) (string, error) {
		return "", errors.New("session expired")
	}), logger.NewNop())

	_, err := c.ListConversations(context.Background(), model.ListFilters{})
	require.ErrorIs(t, err, ErrAuthUnavailable)
	assert.False(t, called, "no request may leave the client without a token")
}

func TestHTTPClientSendsBearerAndQuery(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]model.Conversation{{ID: 1}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, StaticToken("tok-123"), logger.NewNop())

	archived := true
	status := model.StatusOpen
	convs, err := c.ListConversations(context.Background(), model.ListFilters{
		Status:   &status,
		Archived: archived,
	})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Contains(t, gotQuery, "status=open")
	assert.Contains(t, gotQuery, "archived=true")
}

func TestHTTPClientMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, StaticToken("tok"), logger.NewNop())
	_, err := c.GetConversation(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPClientSurfacesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, StaticToken("tok"), logger.NewNop())
	_, err := c.SendMessage(context.Background(), 1, "hello")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
}

func TestHTTPClientDeleteSendsType(t *testing.T) {
	var gotMethod, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.URL.Query().Get("delete_type")
		json.NewEncoder(w).Encode(model.DeleteConversationResponse{Success: true})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, StaticToken("tok"), logger.NewNop())
	require.NoError(t, c.DeleteConversation(context.Background(), 1, model.DeleteUserHide))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "user_hide", gotType)
}

func TestHTTPClientProfileFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/profiles/user-1" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(model.Profile{UserID: "user-1", Name: "Jane Doe"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, StaticToken("tok"), logger.NewNop())
	profile, err := c.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.Name)
}
