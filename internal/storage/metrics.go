package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ads-autopilot/internal/engine"
)

// LatestMetric returns the most recent snapshot for one ad-set, by date
// descending. A target without metrics yields (nil, nil).
func (s *Store) LatestMetric(ctx context.Context, orgID, adsetID string) (*engine.Metric, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var m engine.Metric
	err := s.pool.QueryRow(ctx, `
		SELECT organization_id, ad_set_id, date,
		       spend_minor, conversions, cpa_minor, roas, ctr, frequency
		FROM metrics
		WHERE organization_id = $1 AND ad_set_id = $2
		ORDER BY date DESC
		LIMIT 1
	`, orgID, adsetID).Scan(&m.OrganizationID, &m.AdsetID, &m.Date,
		&m.SpendMinor, &m.Conversions, &m.CPAMinor, &m.ROAS, &m.CTR, &m.Frequency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest metric: %w", err)
	}
	return &m, nil
}
