package rpc

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-planner/internal/planner/engine"
)

func dialTestServer(t *testing.T) (*websocket.Conn, func()) {
	srv := httptest.NewServer(NewServer(engine.NewDetector(), engine.NewStepGenerator()).Handler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func call(t *testing.T, conn *websocket.Conn, req Request) Response {
	require.NoError(t, conn.WriteJSON(req))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestDetectTaskRPC(t *testing.T) {
	conn, cleanup := dialTestServer(t)
	defer cleanup()

	resp := call(t, conn, Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "detect_task",
		Params: map[string]interface{}{
			"command": "Schedule daily KPI report at 14:00",
			"context": map[string]interface{}{"url": "https://dash.example.com"},
		},
	})

	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, float64(1), resp.ID)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "KPI report", result["task_name"])
	assert.Equal(t, "user_chat", result["task_source"])

	scheduling, ok := result["scheduling"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "daily", scheduling["frequency"])

	workflow, ok := result["workflow"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, workflow["steps"])
}

func TestGenerateWorkflowRPC(t *testing.T) {
	conn, cleanup := dialTestServer(t)
	defer cleanup()

	resp := call(t, conn, Request{
		JSONRPC: "2.0",
		ID:      "req-2",
		Method:  "generate_workflow",
		Params: map[string]interface{}{
			"task_name": "extract invoice data",
			"context":   map[string]interface{}{"url": "https://billing.example.com"},
		},
	})

	assert.Equal(t, "req-2", resp.ID)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	workflow, ok := result["workflow"].(map[string]interface{})
	require.True(t, ok)
	steps, ok := workflow["steps"].([]interface{})
	require.True(t, ok)
	assert.Len(t, steps, 2)
}

func TestSuggestTaskRPC_NoSuggestion(t *testing.T) {
	conn, cleanup := dialTestServer(t)
	defer cleanup()

	resp := call(t, conn, Request{
		JSONRPC: "2.0",
		ID:      3,
		Method:  "suggest_task",
		Params: map[string]interface{}{
			"behavior_pattern": "export timesheet",
			"frequency":        float64(1),
		},
	})

	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	assert.Nil(t, result["suggestion"])
}

func TestSuggestTaskRPC_Suggestion(t *testing.T) {
	conn, cleanup := dialTestServer(t)
	defer cleanup()

	resp := call(t, conn, Request{
		JSONRPC: "2.0",
		ID:      4,
		Method:  "suggest_task",
		Params: map[string]interface{}{
			"behavior_pattern": "extract sales figures",
			"frequency":        float64(5),
		},
	})

	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	suggestion, ok := result["suggestion"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Automated extract sales figures", suggestion["task_name"])
	assert.Equal(t, "ai_suggested", suggestion["task_source"])
	assert.NotNil(t, suggestion["workflow"])
}

func TestUnknownMethodRPC(t *testing.T) {
	conn, cleanup := dialTestServer(t)
	defer cleanup()

	resp := call(t, conn, Request{JSONRPC: "2.0", ID: 5, Method: "drop_tables"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "drop_tables")
}

func TestInvalidJSONRPC(t *testing.T) {
	conn, cleanup := dialTestServer(t)
	defer cleanup()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeServerError, resp.Error.Code)
}
