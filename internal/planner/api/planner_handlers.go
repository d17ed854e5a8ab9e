package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"sentinel-planner/internal/planner/engine"
	"sentinel-planner/pkg/validation"
)

// DispatchScheduler is what the handlers need from the scheduler service;
// an interface so tests can mock it.
type DispatchScheduler interface {
	ScheduleDetectedTask(detection *engine.DetectionResult, workflow *engine.Workflow) error
}

type PlannerHandler struct {
	Detector  *engine.Detector
	Generator *engine.StepGenerator
	Scheduler DispatchScheduler
}

func NewPlannerHandler(detector *engine.Detector, generator *engine.StepGenerator, scheduler DispatchScheduler) *PlannerHandler {
	return &PlannerHandler{Detector: detector, Generator: generator, Scheduler: scheduler}
}

type ChatCommandRequest struct {
	Command string                 `json:"command"`
	Context map[string]interface{} `json:"context"`
}

type GenerateWorkflowRequest struct {
	TaskName        string                 `json:"task_name"`
	TaskDescription string                 `json:"task_description"`
	Context         map[string]interface{} `json:"context"`
}

type SuggestTaskRequest struct {
	BehaviorPattern string `json:"behavior_pattern"`
	Frequency       int    `json:"frequency"`
	LastExecuted    string `json:"last_executed"` // RFC3339, optional
}

// DetectTask parses a natural-language command, attaches a generated
// workflow, and validates it. A detected schedule is handed to the dispatch
// scheduler.
func (h *PlannerHandler) DetectTask(ctx context.Context, c *app.RequestContext) {
	var req ChatCommandRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	detected := h.Detector.DetectFromChat(req.Command)
	h.checkExpectedSchema(req.Context)
	workflow := h.Generator.Generate(detected.TaskName, "", req.Context)

	if valid, msg := engine.ValidateWorkflow(workflow); !valid {
		c.JSON(http.StatusOK, utils.H{"success": false, "error": msg})
		return
	}

	response := utils.H{
		"success": true,
		"task": utils.H{
			"task_name":   detected.TaskName,
			"task_source": detected.TaskSource,
			"scheduling":  detected.Scheduling,
			"automation": utils.H{
				"is_repetitive":    detected.IsRepetitive,
				"auto_run_enabled": detected.AutoApproved,
			},
			"workflow": workflow,
		},
	}

	if detected.Scheduling != nil && h.Scheduler != nil {
		if err := h.Scheduler.ScheduleDetectedTask(&detected, workflow); err != nil {
			log.Printf("DetectTask: failed to schedule task %q: %v", detected.TaskName, err)
			response["schedule_warning"] = "failed to schedule task: " + err.Error()
		}
	}

	c.JSON(http.StatusOK, response)
}

// GenerateWorkflow builds and validates a workflow for an explicit task name.
func (h *PlannerHandler) GenerateWorkflow(ctx context.Context, c *app.RequestContext) {
	var req GenerateWorkflowRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	h.checkExpectedSchema(req.Context)
	workflow := h.Generator.Generate(req.TaskName, req.TaskDescription, req.Context)

	if valid, msg := engine.ValidateWorkflow(workflow); !valid {
		c.JSON(http.StatusOK, utils.H{"success": false, "error": msg})
		return
	}
	c.JSON(http.StatusOK, utils.H{"success": true, "workflow": workflow})
}

// SuggestTask runs the behavior suggestion rule for an externally observed
// pattern and attaches a workflow to a positive suggestion.
func (h *PlannerHandler) SuggestTask(ctx context.Context, c *app.RequestContext) {
	var req SuggestTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	var lastExecuted *time.Time
	if req.LastExecuted != "" {
		parsed, err := time.Parse(time.RFC3339, req.LastExecuted)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid last_executed timestamp: " + err.Error()})
			return
		}
		lastExecuted = &parsed
	}

	suggestion := h.Detector.SuggestFromBehavior(req.BehaviorPattern, req.Frequency, lastExecuted)
	if suggestion == nil {
		c.JSON(http.StatusOK, utils.H{"success": false, "message": "No suggestion at this time"})
		return
	}

	suggestion.Workflow = h.Generator.Generate(suggestion.TaskName, "", nil)
	c.JSON(http.StatusOK, utils.H{"success": true, "suggestion": suggestion})
}

// checkExpectedSchema compiles a caller-supplied expected_schema so a broken
// schema is noticed at the boundary. Generation proceeds either way; the
// schema travels verbatim.
func (h *PlannerHandler) checkExpectedSchema(ctx map[string]interface{}) {
	if ctx == nil {
		return
	}
	raw, ok := ctx["expected_schema"]
	if !ok {
		return
	}
	schemaBytes, err := json.Marshal(raw)
	if err != nil {
		log.Printf("expected_schema in context is not marshallable: %v", err)
		return
	}
	if _, err := validation.CompileSchema(string(schemaBytes)); err != nil {
		log.Printf("expected_schema in context does not compile: %v", err)
	}
}
