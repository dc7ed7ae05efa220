package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors for orchestration failures.
var (
	// ErrMalformedToolArguments marks a tool call whose arguments are not valid JSON.
	ErrMalformedToolArguments = errors.New("malformed tool arguments")
	// ErrMissingQueryArgument marks a tool call lacking the required "query" field.
	ErrMissingQueryArgument = errors.New("missing query argument")
	// ErrUnknownTool marks a tool call naming a function we never declared.
	ErrUnknownTool = errors.New("unknown tool requested")
	// ErrNoChoices marks an empty completion from the model provider.
	ErrNoChoices = errors.New("model returned no choices")
)

// OrchestrationError scopes a failure to the query in flight and the state
// it arose in. Nothing external is mutated when one is returned.
type OrchestrationError struct {
	Stage string // "input", "decision", "tool", "synthesis"
	Err   error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("agent: %s: %v", e.Stage, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

func failure(stage string, err error) *OrchestrationError {
	return &OrchestrationError{Stage: stage, Err: err}
}
