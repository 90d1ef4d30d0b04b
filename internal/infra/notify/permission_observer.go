package notify

import (
	"context"

	"github.com/rs/zerolog"

	"marketplace-billing/internal/domain/ports/adapter"
)

var _ adapter.PermissionObserver = (*LogObserver)(nil)

// LogObserver records unknown capability names as warnings. Other subsystems
// watching the log stream can pick them up; the permission manager itself
// stays out of their business.
type LogObserver struct {
	log *zerolog.Logger
}

func NewLogObserver(logger *zerolog.Logger) *LogObserver {
	return &LogObserver{log: logger}
}

func (o *LogObserver) UnknownCapability(ctx context.Context, entityID, userID, capability string) {
	o.log.Warn().
		Str("entity_id", entityID).
		Str("user_id", userID).
		Str("capability", capability).
		Msg("unknown capability forwarded")
}
