package engine

import (
	"fmt"
	"strings"
	"time"
)

const workflowVersion = "1.0.0"

// Default locators used when the caller supplies no context.
const (
	defaultTableSelector    = "#kpi_table"
	defaultUsernameSelector = "#username"
	defaultPasswordSelector = "#password"
	defaultSubmitSelector   = "button[type='submit']"
	defaultExtractSelector  = "body"
)

// Step-level retry budgets.
var (
	interactionRetry = RetryConfig{MaxRetries: 2, RetryDelayMs: 1000}
	verifyRetry      = RetryConfig{MaxRetries: 1, RetryDelayMs: 500}
	noRetry          = RetryConfig{}
)

// StepGenerator maps a task name plus optional context onto an ordered list of
// automation steps. Stateless; every Generate call builds a fresh workflow.
type StepGenerator struct {
	now func() time.Time
}

func NewStepGenerator() *StepGenerator {
	return &StepGenerator{now: time.Now}
}

type stepBuilder func(g *StepGenerator, ctx map[string]interface{}) []Step

// builderRule pairs task-name keywords with the builder to run. Rules are
// evaluated in order and the first match wins: report/kpi beats
// login/authenticate beats extract/scrape; anything else gets the generic
// builder.
type builderRule struct {
	keywords []string
	build    stepBuilder
}

var builderRules = []builderRule{
	{keywords: []string{"report", "kpi"}, build: (*StepGenerator).reportSteps},
	{keywords: []string{"login", "authenticate"}, build: (*StepGenerator).loginSteps},
	{keywords: []string{"extract", "scrape"}, build: (*StepGenerator).extractionSteps},
	{keywords: nil, build: (*StepGenerator).genericSteps},
}

// Generate builds a workflow for the given task. The description is accepted
// for API compatibility; no builder currently consumes it. A generic task with
// no URL context yields an empty step list, which validation then rejects.
func (g *StepGenerator) Generate(taskName, taskDescription string, context map[string]interface{}) *Workflow {
	taskLower := strings.ToLower(taskName)

	var steps []Step
	for _, rule := range builderRules {
		if rule.keywords == nil || containsAny(taskLower, rule.keywords) {
			steps = rule.build(g, context)
			break
		}
	}
	if steps == nil {
		// An empty list is still a list: validation must report "no steps",
		// not a missing steps field.
		steps = []Step{}
	}

	return &Workflow{
		WorkflowID: fmt.Sprintf("workflow_%d", g.now().UnixNano()),
		Version:    workflowVersion,
		Steps:      steps,
		Metadata: WorkflowMetadata{
			CreatedAt: g.now().UTC(),
			CreatedBy: "ai",
			Tags:      extractTags(taskName),
		},
	}
}

// reportSteps: optional navigate, fixed wait, table extraction with a
// columns/rows schema, and a closing verification with a reduced retry budget.
func (g *StepGenerator) reportSteps(ctx map[string]interface{}) []Step {
	var steps []Step
	steps = appendNavigateStep(steps, ctx)

	steps = append(steps, Step{
		StepID:       "s2",
		Action:       ActionWait,
		Target:       "body",
		Parameters:   map[string]interface{}{"duration_ms": 2000},
		Verification: []string{},
		RetryConfig:  noRetry,
	})

	tableSelector := contextString(ctx, "table_selector", defaultTableSelector)
	steps = append(steps, Step{
		StepID:         "s3",
		Action:         ActionExtract,
		Target:         tableSelector,
		ExpectedSchema: tableSchema(),
		Verification:   []string{"schema", "sanity_check"},
		RetryConfig:    interactionRetry,
	})

	steps = append(steps, Step{
		StepID:         "s4",
		Action:         ActionVerify,
		Target:         tableSelector,
		ExpectedSchema: tableSchema(),
		Verification:   []string{"schema", "sanity_check"},
		RetryConfig:    verifyRetry,
	})
	return steps
}

// loginSteps: optional navigate, then type username, type password, submit.
// The three authentication-bearing steps always require approval regardless of
// any auto-approval signal on the task.
func (g *StepGenerator) loginSteps(ctx map[string]interface{}) []Step {
	var steps []Step
	steps = appendNavigateStep(steps, ctx)

	steps = append(steps, Step{
		StepID:           "s2",
		Action:           ActionType,
		Target:           contextString(ctx, "username_selector", defaultUsernameSelector),
		Parameters:       map[string]interface{}{"text": contextString(ctx, "username", "")},
		Verification:     []string{"element_presence"},
		RetryConfig:      interactionRetry,
		RequiresApproval: true,
	})
	steps = append(steps, Step{
		StepID:           "s3",
		Action:           ActionType,
		Target:           contextString(ctx, "password_selector", defaultPasswordSelector),
		Parameters:       map[string]interface{}{"text": contextString(ctx, "password", "")},
		Verification:     []string{"element_presence"},
		RetryConfig:      interactionRetry,
		RequiresApproval: true,
	})
	steps = append(steps, Step{
		StepID:           "s4",
		Action:           ActionSubmit,
		Target:           contextString(ctx, "submit_selector", defaultSubmitSelector),
		Verification:     []string{"element_presence"},
		RetryConfig:      interactionRetry,
		RequiresApproval: true,
	})
	return steps
}

// extractionSteps: optional navigate plus one extract step carrying any
// caller-supplied expected schema verbatim.
func (g *StepGenerator) extractionSteps(ctx map[string]interface{}) []Step {
	var steps []Step
	steps = appendNavigateStep(steps, ctx)

	steps = append(steps, Step{
		StepID:         "s2",
		Action:         ActionExtract,
		Target:         contextString(ctx, "extract_selector", defaultExtractSelector),
		ExpectedSchema: contextSchema(ctx, "expected_schema"),
		Verification:   []string{"schema", "sanity_check"},
		RetryConfig:    interactionRetry,
	})
	return steps
}

// genericSteps: optional navigate only. Without a URL this is deliberately
// empty so validation fails fast instead of inventing a meaningless step.
func (g *StepGenerator) genericSteps(ctx map[string]interface{}) []Step {
	return appendNavigateStep(nil, ctx)
}

// Step IDs are fixed per template slot; skipping the optional navigate slot
// leaves a gap rather than renumbering the rest.
func appendNavigateStep(steps []Step, ctx map[string]interface{}) []Step {
	url := contextString(ctx, "url", "")
	if url == "" {
		return steps
	}
	return append(steps, Step{
		StepID:       "s1",
		Action:       ActionNavigate,
		Target:       url,
		Parameters:   map[string]interface{}{"url": url},
		Verification: []string{"element_presence"},
		RetryConfig:  interactionRetry,
	})
}

func tableSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"columns": map[string]interface{}{"type": "array"},
			"rows":    map[string]interface{}{"type": "array"},
		},
	}
}

// extractTags derives non-exclusive metadata tags from the task name.
func extractTags(taskName string) []string {
	taskLower := strings.ToLower(taskName)
	tags := []string{}
	if strings.Contains(taskLower, "report") {
		tags = append(tags, "report")
	}
	if strings.Contains(taskLower, "kpi") {
		tags = append(tags, "kpi")
	}
	if containsAny(taskLower, []string{"daily", "weekly", "monthly"}) {
		tags = append(tags, "scheduled")
	}
	if containsAny(taskLower, []string{"login", "auth"}) {
		tags = append(tags, "authentication")
	}
	return tags
}

func contextString(ctx map[string]interface{}, key, fallback string) string {
	if ctx == nil {
		return fallback
	}
	if v, ok := ctx[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func contextSchema(ctx map[string]interface{}, key string) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
