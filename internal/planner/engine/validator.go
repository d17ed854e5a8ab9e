package engine

import "fmt"

// ValidateWorkflow runs the structural contract checks on a candidate
// workflow. The first failure wins; a passing workflow returns (true, "").
func ValidateWorkflow(workflow *Workflow) (bool, string) {
	if workflow == nil || workflow.Steps == nil {
		return false, "Workflow must contain 'steps'"
	}
	if len(workflow.Steps) == 0 {
		return false, "Workflow must have at least one step"
	}
	for i, step := range workflow.Steps {
		if step.StepID == "" {
			return false, fmt.Sprintf("Step %d missing 'step_id'", i)
		}
		if step.Action == "" {
			return false, fmt.Sprintf("Step %d missing 'action'", i)
		}
		if step.Target == "" {
			return false, fmt.Sprintf("Step %d missing 'target'", i)
		}
	}
	return true, ""
}
