package orchestrator

import "fmt"

// ViewContextError reports a run attempted while the document's active
// view is not a plan view (or there is no active view at all).
type ViewContextError struct {
	ViewName string
	Reason   string
}

func (e *ViewContextError) Error() string {
	if e.ViewName == "" {
		return fmt.Sprintf("active view: %s", e.Reason)
	}
	return fmt.Sprintf("active view %q: %s", e.ViewName, e.Reason)
}

// ConfigurationError reports a configured resource the document does
// not have: a master schedule, title block, or view template.
type ConfigurationError struct {
	Kind string
	Name string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configured %s %q not found in document", e.Kind, e.Name)
}

// TransactionFailure wraps an error raised inside the generation
// transaction. State names the pipeline stage that failed; the
// transaction was rolled back and the document is unchanged.
type TransactionFailure struct {
	State string
	Err   error
}

func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("generation failed in %s, all changes rolled back: %v", e.State, e.Err)
}

func (e *TransactionFailure) Unwrap() error { return e.Err }
