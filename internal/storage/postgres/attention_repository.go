package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AttentionRepository runs the per-stream queries behind the host
// attention count. Each mirrors a predicate in the attention package.
type AttentionRepository struct {
	db
}

func NewAttentionRepository(pool *pgxpool.Pool, opts ...Option) *AttentionRepository {
	return &AttentionRepository{db: newDB(pool, opts...)}
}

func (r *AttentionRepository) ListStatusAttention(ctx context.Context, hostID string, statuses []string) ([]string, error) {
	const query = `
SELECT id::text FROM bookings
WHERE host_id = $1 AND status = ANY($2)
ORDER BY id`
	ids, err := r.queryIDs(ctx, query, hostID, statuses)
	if err != nil {
		return nil, fmt.Errorf("list status attention: %w", err)
	}
	return ids, nil
}

func (r *AttentionRepository) ListFlagAttention(ctx context.Context, hostID string) ([]string, error) {
	const query = `
SELECT id::text FROM bookings
WHERE host_id = $1 AND cancellation_requested
ORDER BY id`
	ids, err := r.queryIDs(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("list flag attention: %w", err)
	}
	return ids, nil
}

func (r *AttentionRepository) ListRequestAttention(ctx context.Context, hostID string) ([]string, error) {
	const query = `
SELECT id::text FROM bookings
WHERE host_id = $1
  AND request->>'type' = 'cancel'
  AND request->>'state' IN ('pending', 'requested')
ORDER BY id`
	ids, err := r.queryIDs(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("list request attention: %w", err)
	}
	return ids, nil
}
