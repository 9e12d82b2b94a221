package redis

// Key patterns for Redis keys.
const (
	KeyPatternRunSummary  = "bulksender:run:%s:summary"
	KeyPatternRunOutcomes = "bulksender:run:%s:outcomes"
	KeyRecentRuns         = "bulksender:runs"
)
