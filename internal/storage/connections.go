package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ads-autopilot/internal/engine"
)

// PlatformConnection returns the newest ad-platform connection for the
// organization, nil when none is configured. Usability (status, expiry) is
// judged by the engine.
func (s *Store) PlatformConnection(ctx context.Context, orgID string) (*engine.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c engine.Connection
	err := s.pool.QueryRow(ctx, `
		SELECT organization_id, ad_account_id, access_token, status, token_expires_at
		FROM platform_connections
		WHERE organization_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, orgID).Scan(&c.OrganizationID, &c.AdAccountID, &c.AccessToken, &c.Status, &c.TokenExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query platform connection: %w", err)
	}
	return &c, nil
}
