package storage

import (
	"context"
	"fmt"
	"time"

	"ads-autopilot/internal/engine"
)

// AcquireLock takes the per-organization scheduling lock. The row is created
// lazily on first use and never deleted; a lock whose expiry has passed is
// free, which self-heals after a crashed holder. The upsert's WHERE guard
// makes acquisition atomic: of two racing passes exactly one updates the row.
func (s *Store) AcquireLock(ctx context.Context, orgID, key string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	until := time.Now().Add(ttl)
	ct, err := s.pool.Exec(ctx, `
		INSERT INTO worker_locks (organization_id, lock_key, locked_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, lock_key)
		DO UPDATE SET locked_until = $3
		WHERE worker_locks.locked_until <= now()
	`, orgID, key, until)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return engine.ErrLockHeld
	}
	return nil
}

// ReleaseLock resets the expiry to now, making the lock immediately free.
func (s *Store) ReleaseLock(ctx context.Context, orgID, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `
		UPDATE worker_locks SET locked_until = now()
		WHERE organization_id = $1 AND lock_key = $2
	`, orgID, key); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
