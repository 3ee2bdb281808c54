package core

import "errors"

// Workflow error taxonomy. Structural errors are fatal to the CLI invocation
// that triggered them; callers match with errors.Is.
var (
	// ErrInvalidTransition means an operation's phase precondition was not
	// met. Out-of-order calls are rejected, never silently corrected.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrUnknownTask means an operation referenced a use case number that
	// does not exist in the run.
	ErrUnknownTask = errors.New("unknown use case")

	// ErrTaskNotEligible means analysis was requested for a use case whose
	// execution has not completed successfully.
	ErrTaskNotEligible = errors.New("use case not eligible for analysis")

	// ErrEmptyExtraction means extraction produced zero use cases.
	ErrEmptyExtraction = errors.New("extraction produced no use cases")
)
