package audit

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSink writes audit entries to the structured log. It is the default sink
// when no broker is configured.
type LogSink struct{}

func (LogSink) Record(_ context.Context, e Entry) error {
	log.Info().
		Str("audit_id", e.ID).
		Str("org_id", e.OrganizationID).
		Str("actor", e.ActorLabel).
		Str("event_type", e.EventType).
		Str("entity_type", e.EntityType).
		Str("entity_id", e.EntityID).
		Interface("details", e.Details).
		Msg("audit")
	return nil
}
