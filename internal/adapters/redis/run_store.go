package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bulk-sender/internal/domain"
)

// RunStore implements ports.RunStore. Every key expires after ttl.
type RunStore struct {
	client *Client
	ttl    time.Duration
}

// NewRunStore creates a new run store with the given TTL.
func NewRunStore(client *Client, ttl time.Duration) *RunStore {
	return &RunStore{
		client: client,
		ttl:    ttl,
	}
}

// AppendOutcome pushes one recipient result onto the run's outcome list.
func (s *RunStore) AppendOutcome(ctx context.Context, runID string, result domain.RecipientResult) error {
	key := fmt.Sprintf(KeyPatternRunOutcomes, runID)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	pipe := s.client.Native().TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}

	return nil
}

// SaveSummary stores the run summary and indexes the run by start time.
func (s *RunStore) SaveSummary(ctx context.Context, summary domain.RunSummary) error {
	key := fmt.Sprintf(KeyPatternRunSummary, summary.RunID)

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	pipe := s.client.Native().TxPipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.ZAdd(ctx, KeyRecentRuns, redis.Z{
		Score:  float64(summary.StartedAt.Unix()),
		Member: summary.RunID,
	})
	// The index itself never expires; drop members whose summary has.
	pipe.ZRemRangeByScore(ctx, KeyRecentRuns, "-inf", fmt.Sprintf("(%d", time.Now().Add(-s.ttl).Unix()))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}

	return nil
}

// GetSummary retrieves a run summary.
func (s *RunStore) GetSummary(ctx context.Context, runID string) (*domain.RunSummary, error) {
	key := fmt.Sprintf(KeyPatternRunSummary, runID)

	data, err := s.client.Native().Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}

	var summary domain.RunSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}

	return &summary, nil
}

// ListOutcomes returns the run's recipient results in processing order.
func (s *RunStore) ListOutcomes(ctx context.Context, runID string) ([]domain.RecipientResult, error) {
	key := fmt.Sprintf(KeyPatternRunOutcomes, runID)

	items, err := s.client.Native().LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	results := make([]domain.RecipientResult, 0, len(items))
	for _, item := range items {
		var res domain.RecipientResult
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
		results = append(results, res)
	}

	return results, nil
}

// RecentRuns returns up to limit run ids, newest first.
func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := s.client.Native().ZRevRange(ctx, KeyRecentRuns, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}

	return ids, nil
}

// DeleteRun removes a run's summary, outcomes and index entry.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	pipe := s.client.Native().TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(KeyPatternRunSummary, runID), fmt.Sprintf(KeyPatternRunOutcomes, runID))
	pipe.ZRem(ctx, KeyRecentRuns, runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
