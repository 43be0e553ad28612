package anonymize

import "errors"

var (
	// ErrDetector marks failures of the external detection model
	// (unreachable sidecar, unsupported language, timeout).
	ErrDetector = errors.New("detector error")

	// ErrContract marks a broken pipeline invariant, e.g. a span whose end
	// points past the text. Signals an integration bug, not a model failure.
	ErrContract = errors.New("contract violation")
)
