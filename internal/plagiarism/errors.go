package plagiarism

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrComparisonFailed = errors.New("comparison failed")
	ErrTimeout          = errors.New("comparison timed out")
)

// ComparisonFailedError attributes a metric failure to one pair.
type ComparisonFailedError struct {
	Pair  Pair
	Cause error
}

func (e *ComparisonFailedError) Error() string {
	return fmt.Sprintf("%s for %q and %q: %v", ErrComparisonFailed, e.Pair.A, e.Pair.B, e.Cause)
}

func (e *ComparisonFailedError) Unwrap() []error {
	return []error{ErrComparisonFailed, e.Cause}
}

func (e *ComparisonFailedError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		A     string `json:"a"`
		B     string `json:"b"`
		Cause string `json:"cause"`
	}{A: e.Pair.A, B: e.Pair.B, Cause: e.Cause.Error()})
}

// PanicError carries a value recovered from a panicking metric.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("metric panicked: %v", e.Value)
}

// TimeoutError reports how much of the run finished before the deadline.
type TimeoutError struct {
	Computed int
	Total    int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %s: %d of %d pairs compared", ErrTimeout, e.Elapsed.Round(time.Millisecond), e.Computed, e.Total)
}

func (e *TimeoutError) Unwrap() []error {
	return []error{ErrTimeout, context.DeadlineExceeded}
}
