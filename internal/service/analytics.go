package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vkuzmin-dev/polyglot/internal/database"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

// Analytics records usage events for the /stats command. Tracking is
// best-effort: a failed insert is logged and never surfaces to the
// user flow that triggered it.
type Analytics struct {
	db     database.Database
	logger logger.Logger
}

func NewAnalytics(db database.Database, log logger.Logger) *Analytics {
	return &Analytics{db: db, logger: log}
}

func (a *Analytics) Track(ctx context.Context, userID int64, event, capability, provider string, duration time.Duration) {
	err := a.db.TrackEvent(ctx, database.Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Event:      event,
		Capability: capability,
		Provider:   provider,
		DurationMs: duration.Milliseconds(),
	})
	if err != nil {
		a.logger.WithError(err).WithFields(logger.Fields{
			"user_id": userID,
			"event":   event,
		}).Warn("Failed to track analytics event")
	}
}

func (a *Analytics) UserStats(userID int64) (*database.UserStats, error) {
	return a.db.UserStats(userID)
}
