package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendsMessagesAndDecodesUsage(t *testing.T) {
	var gotReq wireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wireResponse{
			Content: "hello",
			Usage: struct {
				InputTokens  int64 `json:"inputTokens"`
				OutputTokens int64 `json:"outputTokens"`
			}{InputTokens: 12, OutputTokens: 34},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"})

	resp, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "do the thing"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, int64(12), resp.InputTokens)
	assert.Equal(t, int64(34), resp.OutputTokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, RoleUser, gotReq.Messages[1].Role)
	assert.Equal(t, "do the thing", gotReq.Messages[1].Content)
}

func TestChatReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRequestDecompositionParsesLenientJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wireResponse{
			Content: "Here you go:\n```json\n{\"strategy\": \"adaptive\", \"subtasks\": [{\"id\": \"task-1\", \"description\": \"build it\", \"complexity\": 3}]}\n```",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	raw, err := client.RequestDecomposition(context.Background(), "build a thing", "")
	require.NoError(t, err)
	assert.Equal(t, "adaptive", raw.Strategy)
	require.Len(t, raw.Subtasks, 1)
	assert.Equal(t, "task-1", raw.Subtasks[0].ID)
	assert.Equal(t, 3, raw.Subtasks[0].Complexity)
}

func TestRequestDecompositionPropagatesChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.RequestDecomposition(context.Background(), "build a thing", "context here")
	require.Error(t, err)
}
