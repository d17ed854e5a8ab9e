package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletionServer answers any chat completion request with the given
// content and records the last request body.
func fakeCompletionServer(t *testing.T, content string, lastReq *map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if lastReq != nil {
			*lastReq = body
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"id":      "cmpl-test",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]interface{}{"role": "assistant", "content": content}}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestChat(t *testing.T) {
	var lastReq map[string]interface{}
	srv := fakeCompletionServer(t, "hello back", &lastReq)
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	reply, err := c.Chat(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", reply)
	assert.Equal(t, DefaultModel, lastReq["model"])
}

func TestBreakdownTask_SendsSystemPrompt(t *testing.T) {
	var lastReq map[string]interface{}
	srv := fakeCompletionServer(t, "1. step one", &lastReq)
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "custom-model")
	reply, err := c.BreakdownTask(context.Background(), "archive old invoices")
	require.NoError(t, err)
	assert.Equal(t, "1. step one", reply)
	assert.Equal(t, "custom-model", lastReq["model"])

	msgs, ok := lastReq["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.False(t, c.Configured())
	_, err := c.Chat(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
