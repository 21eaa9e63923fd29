package models

import "time"

type Step string

const (
	StepIdle      Step = "idle"
	StepStarted   Step = "started"
	StepLoading   Step = "loading"
	StepComparing Step = "comparing"
	StepRanking   Step = "ranking"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// ValidSteps lists every step a run can report.
var ValidSteps = map[Step]bool{
	StepIdle:      true,
	StepStarted:   true,
	StepLoading:   true,
	StepComparing: true,
	StepRanking:   true,
	StepCompleted: true,
	StepFailed:    true,
}

// DocumentInput is one inline document in a compare request
type DocumentInput struct {
	ID      string `json:"id" binding:"required"`
	Content string `json:"content"`
}

// CompareOptions are the per-request engine settings
type CompareOptions struct {
	Threshold          *float64 `json:"threshold" binding:"required"`
	Workers            int      `json:"workers"`
	FailFast           bool     `json:"failFast"`
	TimeoutSeconds     int      `json:"timeoutSeconds"`
	Algorithm          string   `json:"algorithm"`
	CaseFold           bool     `json:"caseFold"`
	CollapseWhitespace bool     `json:"collapseWhitespace"`
	Template           string   `json:"template"`
}

// CompareRequest represents a request to compare inline documents
type CompareRequest struct {
	CompareOptions
	Documents []DocumentInput `json:"documents"`
}

// RunStatus is the progress of a drive run as tracked in Redis
type RunStatus struct {
	DriveID   string    `json:"driveId"`
	Step      Step      `json:"step"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
