package session

import "time"

// State is the phase of the most recent run.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// DefaultMessage is the user-facing text for a state.
func (s State) DefaultMessage() string {
	switch s {
	case StateAnalyzing:
		return "Analyzing... this can take a few seconds."
	case StateCompleted:
		return "Analysis completed."
	case StateFailed:
		return "Analysis failed."
	default:
		return "Enter an image URL to analyze."
	}
}

// IsError reports whether the state should be shown as an error.
func (s State) IsError() bool {
	return s == StateFailed
}

// Status is a snapshot of the Analyzer's latest run.
type Status struct {
	State     State     `json:"state"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
