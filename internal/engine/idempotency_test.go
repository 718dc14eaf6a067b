package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKey_DeterministicWithinBucket(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)
	later := at.Add(30 * time.Minute) // same hour bucket

	k1 := IdempotencyKey("org-1", "rule-1", "adset-1", ActionReduceBudget, at)
	k2 := IdempotencyKey("org-1", "rule-1", "adset-1", ActionReduceBudget, later)
	assert.Equal(t, k1, k2, "same bucket must derive the same key")
	assert.Len(t, k1, 64)
}

func TestIdempotencyKey_NewBucketNewKey(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 59, 0, 0, time.UTC)
	next := at.Add(time.Minute) // crosses the hour boundary

	k1 := IdempotencyKey("org-1", "rule-1", "adset-1", ActionReduceBudget, at)
	k2 := IdempotencyKey("org-1", "rule-1", "adset-1", ActionReduceBudget, next)
	assert.NotEqual(t, k1, k2)
}

func TestIdempotencyKey_DistinguishesComponents(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	base := IdempotencyKey("org-1", "rule-1", "adset-1", ActionReduceBudget, at)

	assert.NotEqual(t, base, IdempotencyKey("org-2", "rule-1", "adset-1", ActionReduceBudget, at))
	assert.NotEqual(t, base, IdempotencyKey("org-1", "rule-2", "adset-1", ActionReduceBudget, at))
	assert.NotEqual(t, base, IdempotencyKey("org-1", "rule-1", "adset-2", ActionReduceBudget, at))
	assert.NotEqual(t, base, IdempotencyKey("org-1", "rule-1", "adset-1", ActionPauseAdset, at))
}

func TestTimeBucket_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	local := time.Date(2026, 3, 14, 16, 30, 0, 0, loc) // 09:30 UTC
	assert.Equal(t, "2026-03-14T09", TimeBucket(local))
}
