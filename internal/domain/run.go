package domain

import "time"

// RunConfig is the immutable input to one run.
type RunConfig struct {
	FilePath    string
	StaticVars  map[string]string
	Template    string
	DynamicVars []string // ordered; derived from the template when nil
}

// ExpectedColumns returns numero followed by the dynamic columns.
func (c RunConfig) ExpectedColumns() []string {
	cols := make([]string, 0, len(c.DynamicVars)+1)
	cols = append(cols, FieldNumero)
	return append(cols, c.DynamicVars...)
}

// StaticNames returns the static variable names.
func (c RunConfig) StaticNames() []string {
	names := make([]string, 0, len(c.StaticVars))
	for name := range c.StaticVars {
		names = append(names, name)
	}
	return names
}

// RunState is the orchestrator's position in the run lifecycle.
type RunState int

const (
	StateIdle RunState = iota
	StateInitializing
	StateAwaitingLoginConfirmation
	StateSending
	StateFinishing
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateAwaitingLoginConfirmation:
		return "awaiting_login_confirmation"
	case StateSending:
		return "sending"
	case StateFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// RunSummary is the terminal aggregate emitted once per run.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	Sent           int       `json:"sent"`
	Failed         int       `json:"failed"`
	Total          int       `json:"total"`
	Processed      int       `json:"processed"`
	Cancelled      bool      `json:"cancelled"`
	InitError      string    `json:"init_error,omitempty"`
	FailureLogPath string    `json:"failure_log_path,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Result classifies how the run ended, for metrics and history.
func (s RunSummary) Result() string {
	switch {
	case s.InitError != "":
		return "init_failed"
	case s.Cancelled:
		return "cancelled"
	default:
		return "completed"
	}
}

// Severity tags operator-facing log lines.
type Severity int

const (
	SeverityInfo Severity = iota
	// SeverityNote marks ignored best-effort failures (cleanup, popup dismiss).
	SeverityNote
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}
