package engine

import "time"

// TaskSource records where a task came from.
type TaskSource string

const (
	TaskSourceUserManual     TaskSource = "user_manual"
	TaskSourceUserChat       TaskSource = "user_chat"
	TaskSourceAIAutoDetected TaskSource = "ai_auto_detected"
	TaskSourceAISuggested    TaskSource = "ai_suggested"
	TaskSourceScheduled      TaskSource = "scheduled"
)

// Schedule types and frequencies as they appear on the wire.
const (
	ScheduleTypeOnce      = "once"
	ScheduleTypeRecurring = "recurring"

	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// ScheduleDescriptor carries the recurrence/once timing detected in a command.
// It is produced once per detection and not mutated afterward.
type ScheduleDescriptor struct {
	ScheduleType string    `json:"schedule_type"`
	Frequency    string    `json:"frequency,omitempty"`
	DaysOfWeek   []int     `json:"days_of_week,omitempty"` // Monday=0 .. Sunday=6
	Time         string    `json:"time"`                   // "HH:MM", 24-hour
	NextRun      time.Time `json:"next_run"`
	Enabled      bool      `json:"enabled"`
}

// DetectionResult is the parsed form of one natural-language command.
type DetectionResult struct {
	TaskName     string              `json:"task_name"`
	TaskSource   TaskSource          `json:"task_source"`
	Scheduling   *ScheduleDescriptor `json:"scheduling,omitempty"`
	IsRepetitive bool                `json:"is_repetitive"`
	AutoApproved bool                `json:"auto_approved"`
	Command      string              `json:"command"`
}

// Step actions understood by downstream executors.
const (
	ActionNavigate = "navigate"
	ActionWait     = "wait"
	ActionType     = "type"
	ActionClick    = "click"
	ActionSubmit   = "submit"
	ActionExtract  = "extract"
	ActionVerify   = "verify"
)

// RetryConfig is the retry budget attached to a step.
type RetryConfig struct {
	MaxRetries   int `json:"max_retries"`
	RetryDelayMs int `json:"retry_delay_ms"`
}

// Step is one atomic automation action in a workflow.
type Step struct {
	StepID           string                 `json:"step_id"`
	Action           string                 `json:"action"`
	Target           string                 `json:"target"` // selector or URL
	Parameters       map[string]interface{} `json:"parameters,omitempty"`
	ExpectedSchema   map[string]interface{} `json:"expected_schema,omitempty"`
	Verification     []string               `json:"verification"`
	RetryConfig      RetryConfig            `json:"retry_config"`
	RequiresApproval bool                   `json:"requires_approval"`
}

// WorkflowMetadata describes the provenance of a generated workflow.
type WorkflowMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	Tags      []string  `json:"tags"`
}

// Workflow is an ordered sequence of steps built fresh on every generation call.
type Workflow struct {
	WorkflowID string           `json:"workflow_id"`
	Version    string           `json:"version"`
	Steps      []Step           `json:"steps"`
	Metadata   WorkflowMetadata `json:"metadata"`
}

// BehaviorSuggestion is a proactive task suggestion derived from an observed
// behavior pattern. AutoApproved is always false: suggested tasks require
// human confirmation.
type BehaviorSuggestion struct {
	TaskName        string     `json:"task_name"`
	TaskSource      TaskSource `json:"task_source"`
	IsRepetitive    bool       `json:"is_repetitive"`
	AutoApproved    bool       `json:"auto_approved"`
	BehaviorPattern string     `json:"behavior_pattern"`
	Frequency       int        `json:"frequency"`
	Workflow        *Workflow  `json:"workflow,omitempty"`
}
