package photometric

import (
	"errors"
	"fmt"
)

// ErrDegenerateLight is returned when a lighting solve yields the zero
// vector, which has no direction.
var ErrDegenerateLight = errors.New("photometric: degenerate light direction")

// SampleError reports a lighting-estimation failure for one sample.
type SampleError struct {
	Index int
	Name  string
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }

// Stage names the step of a refinement round that failed.
type Stage string

const (
	StageLighting Stage = "lighting"
	StageNormals  Stage = "normals"
)

// RoundError wraps any failure inside a refinement round.
type RoundError struct {
	Round int
	Stage Stage
	Err   error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("photometric: round %d %s: %v", e.Round, e.Stage, e.Err)
}

func (e *RoundError) Unwrap() error { return e.Err }
