package ports

// OutcomeMetrics receives per-run instrumentation.
type OutcomeMetrics interface {
	ObserveOutcome(outcome string)
	SetProgress(percent int)
	RunFinished(result string)
}
