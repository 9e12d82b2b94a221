package ports

import "bulk-sender/internal/domain"

// RunObserver receives the run event stream. All calls for one run are made
// from the worker goroutine, in emission order; OnRunFinished is always last.
type RunObserver interface {
	OnLog(severity domain.Severity, line string)
	OnProgress(percent int)
	OnAwaitingLogin()
	OnRunFinished(summary domain.RunSummary)
	OnFileLoaded(label string)
	OnExpectedFormatChanged(format string)
}
