package events

import "sentinel-planner/internal/planner/engine"

// WorkflowDispatchPayload is published by the planner when a scheduled task
// comes due; an external executor picks it up from Kafka.
type WorkflowDispatchPayload struct {
	TaskName     string            `json:"task_name"`
	TaskSource   engine.TaskSource `json:"task_source"`
	AutoApproved bool              `json:"auto_approved"`
	Workflow     *engine.Workflow  `json:"workflow"`
	ScheduledFor string            `json:"scheduled_for,omitempty"` // RFC3339
}

// BehaviorEventPayload is consumed from the behavior-monitoring subsystem.
// Executed marks an observation of the user actually performing the behavior,
// which resets the suggestion cooldown.
type BehaviorEventPayload struct {
	BehaviorPattern string `json:"behavior_pattern"`
	Executed        bool   `json:"executed"`
	ObservedAt      string `json:"observed_at,omitempty"` // RFC3339
}

// BehaviorEventSchema is the wire contract for BehaviorEventPayload; consumed
// messages are validated against it before processing.
const BehaviorEventSchema = `{
	"type": "object",
	"properties": {
		"behavior_pattern": {"type": "string", "minLength": 1},
		"executed": {"type": "boolean"},
		"observed_at": {"type": "string"}
	},
	"required": ["behavior_pattern"]
}`

// TaskSuggestionPayload is published when an observed behavior crosses the
// suggestion threshold.
type TaskSuggestionPayload struct {
	Suggestion *engine.BehaviorSuggestion `json:"suggestion"`
}
