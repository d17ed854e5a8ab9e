// Package rpc exposes the planning operations over a JSON-RPC 2.0 WebSocket,
// for callers that hold a long-lived connection instead of issuing HTTP
// requests per command.
package rpc

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sentinel-planner/internal/planner/engine"
)

const (
	codeMethodNotFound = -32601
	codeServerError    = -32000
)

type Request struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server upgrades /ws connections and serves planning methods over them.
// One goroutine per connection; connections share the stateless engine.
type Server struct {
	Detector  *engine.Detector
	Generator *engine.StepGenerator
	upgrader  websocket.Upgrader
}

func NewServer(detector *engine.Detector, generator *engine.StepGenerator) *Server {
	return &Server{
		Detector:  detector,
		Generator: generator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The socket carries no credentials and mutates nothing.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("rpc: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("rpc: read failed: %v", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.writeError(conn, nil, codeServerError, "invalid JSON-RPC request: "+err.Error())
			continue
		}

		result, rpcErr := s.dispatch(&req)
		if rpcErr != nil {
			s.writeError(conn, req.ID, rpcErr.Code, rpcErr.Message)
			continue
		}
		s.write(conn, Response{JSONRPC: "2.0", ID: req.ID, Result: result})
	}
}

func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	switch req.Method {
	case "detect_task":
		return s.detectTask(req.Params), nil
	case "generate_workflow":
		return s.generateWorkflow(req.Params), nil
	case "suggest_task":
		return s.suggestTask(req.Params)
	default:
		return nil, &Error{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) detectTask(params map[string]interface{}) map[string]interface{} {
	command, _ := params["command"].(string)
	context, _ := params["context"].(map[string]interface{})

	detected := s.Detector.DetectFromChat(command)
	workflow := s.Generator.Generate(detected.TaskName, "", context)

	return map[string]interface{}{
		"task_name":   detected.TaskName,
		"task_source": detected.TaskSource,
		"scheduling":  detected.Scheduling,
		"automation": map[string]interface{}{
			"is_repetitive":    detected.IsRepetitive,
			"auto_run_enabled": detected.AutoApproved,
		},
		"workflow": workflow,
	}
}

func (s *Server) generateWorkflow(params map[string]interface{}) map[string]interface{} {
	taskName, _ := params["task_name"].(string)
	taskDescription, _ := params["task_description"].(string)
	context, _ := params["context"].(map[string]interface{})

	workflow := s.Generator.Generate(taskName, taskDescription, context)
	return map[string]interface{}{"workflow": workflow}
}

func (s *Server) suggestTask(params map[string]interface{}) (interface{}, *Error) {
	pattern, _ := params["behavior_pattern"].(string)
	frequency := 0
	if f, ok := params["frequency"].(float64); ok {
		frequency = int(f)
	}

	var lastExecuted *time.Time
	if raw, ok := params["last_executed"].(string); ok && raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, &Error{Code: codeServerError, Message: "invalid last_executed timestamp: " + err.Error()}
		}
		lastExecuted = &parsed
	}

	suggestion := s.Detector.SuggestFromBehavior(pattern, frequency, lastExecuted)
	if suggestion != nil {
		suggestion.Workflow = s.Generator.Generate(suggestion.TaskName, "", nil)
	}
	return map[string]interface{}{"suggestion": suggestion}, nil
}

func (s *Server) writeError(conn *websocket.Conn, id interface{}, code int, message string) {
	s.write(conn, Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}})
}

func (s *Server) write(conn *websocket.Conn, resp Response) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("rpc: write failed: %v", err)
	}
}
