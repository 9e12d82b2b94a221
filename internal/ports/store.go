package ports

import (
	"context"

	"bulk-sender/internal/domain"
)

// RunStore persists run history.
type RunStore interface {
	// AppendOutcome records one recipient result for a run.
	AppendOutcome(ctx context.Context, runID string, result domain.RecipientResult) error

	// SaveSummary stores the terminal summary of a run.
	SaveSummary(ctx context.Context, summary domain.RunSummary) error

	// GetSummary retrieves a run summary.
	GetSummary(ctx context.Context, runID string) (*domain.RunSummary, error)

	// ListOutcomes returns the recipient results of a run in processing order.
	ListOutcomes(ctx context.Context, runID string) ([]domain.RecipientResult, error)

	// RecentRuns returns up to limit run ids, newest first.
	RecentRuns(ctx context.Context, limit int) ([]string, error)
}
