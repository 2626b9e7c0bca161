package pipeline

import "fmt"

// InvalidInputError reports a recording path rejected before decoding.
type InvalidInputError struct {
	Path   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid recording %s: %s", e.Path, e.Reason)
}

// Stage names a pipeline step that can fail while decoding.
type Stage string

const (
	StageOpen     Stage = "open"
	StageRaw      Stage = "raw"
	StageFiltered Stage = "filtered"
)

// DecodeFailure reports a recording or catalogue the decoder rejected.
// Artifacts from the failing stage must not be treated as valid.
type DecodeFailure struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *DecodeFailure) Error() string {
	return fmt.Sprintf("decode %s (%s stage): %v", e.Path, e.Stage, e.Err)
}

func (e *DecodeFailure) Unwrap() error { return e.Err }
