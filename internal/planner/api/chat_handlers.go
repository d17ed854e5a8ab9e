package api

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"sentinel-planner/internal/planner/ai"
)

// ChatHandler exposes the AI assistant call-throughs. It works with a nil
// client: the endpoints then report the assistant as unavailable.
type ChatHandler struct {
	AI *ai.Client
}

func NewChatHandler(client *ai.Client) *ChatHandler {
	return &ChatHandler{AI: client}
}

type ChatRequest struct {
	Message string `json:"message"`
}

type CreateTaskRequest struct {
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Chat relays one user message to the completion service.
func (h *ChatHandler) Chat(ctx context.Context, c *app.RequestContext) {
	var req ChatRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, utils.H{"error": "message is required"})
		return
	}

	reply, err := h.AI.Chat(ctx, req.Message)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, utils.H{"error": "AI assistant is not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"response": reply})
}

// CreateTask asks the assistant for a step breakdown of a task description
// and returns it as a pending task record.
func (h *ChatHandler) CreateTask(ctx context.Context, c *app.RequestContext) {
	var req CreateTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if req.Description == "" {
		c.JSON(http.StatusBadRequest, utils.H{"error": "description is required"})
		return
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}

	steps, err := h.AI.BreakdownTask(ctx, req.Description)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, utils.H{"error": "AI assistant is not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, utils.H{
		"task_id":     taskID(req.Description),
		"description": req.Description,
		"priority":    req.Priority,
		"steps":       steps,
		"status":      "pending",
	})
}

// Health reports liveness and whether the assistant is reachable.
func (h *ChatHandler) Health(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, utils.H{
		"status":       "healthy",
		"ai_available": h.AI.Configured(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Root identifies the service.
func (h *ChatHandler) Root(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, utils.H{
		"service": "sentinel-planner",
		"status":  "running",
	})
}

func taskID(description string) string {
	fh := fnv.New32a()
	fh.Write([]byte(description))
	return fmt.Sprintf("task_%x", fh.Sum32())
}
