package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// BucketLayout is the idempotency window width: one UTC hour. Two passes
// inside the same hour derive the same key for a given (org, rule, target,
// action type) and therefore create at most one action between them; a new
// hour opens a fresh bucket if the condition persists.
const BucketLayout = "2006-01-02T15"

// TimeBucket truncates t to the idempotency window.
func TimeBucket(t time.Time) string {
	return t.UTC().Format(BucketLayout)
}

// IdempotencyKey derives the deterministic dedup key for one action slot.
func IdempotencyKey(orgID, ruleID, targetRef string, actionType ActionType, at time.Time) string {
	seed := fmt.Sprintf("%s|%s|%s|%s|%s", orgID, ruleID, targetRef, actionType, TimeBucket(at))
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
