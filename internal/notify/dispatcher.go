// Package notify persists one-hop notifications and pushes them to the recipient's channel.
package notify

import (
	"context"

	"github.com/anonto42/letterly/backend/internal/metrics"
	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/anonto42/letterly/backend/pkg/logger"
)

// Dispatcher creates notifications after the triggering write has committed.
// Failures are logged and never returned: the caller's response must not depend on them.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	emitter       realtime.Emitter
}

func NewDispatcher(notifications repositories.NotificationRepository, users repositories.UserRepository, emitter realtime.Emitter) *Dispatcher {
	return &Dispatcher{notifications: notifications, users: users, emitter: emitter}
}

// Notify records that actorID did something to target owned by recipientID, then emits
// new_notification to user:<recipientID>. Acting on your own content is not notified.
// It returns the persisted row, or nil when nothing was stored.
func (d *Dispatcher) Notify(ctx context.Context, recipientID, actorID uint, target models.NotificationTarget) *models.Notification {
	if recipientID == 0 || recipientID == actorID {
		return nil
	}

	n := models.NewNotification(recipientID, actorID, target)
	if err := d.notifications.CreateNotification(ctx, n); err != nil {
		metrics.NotificationFailures.WithLabelValues("persist").Inc()
		logger.Error().Err(err).
			Uint("recipient", recipientID).
			Str("type", string(n.Type)).
			Msg("failed to persist notification")
		return nil
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	actor := models.UserCompact{ID: actorID}
	if u, err := d.users.GetUserByID(ctx, actorID); err == nil {
		actor = u.ToCompact()
	}

	d.Emit(realtime.UserChannel(recipientID), realtime.EventNewNotification, models.NewNotificationView(*n, actor))
	return n
}

// Emit is a best-effort realtime push.
func (d *Dispatcher) Emit(channel, event string, payload interface{}) {
	if d.emitter == nil {
		return
	}
	if err := d.emitter.Emit(channel, event, payload); err != nil {
		metrics.NotificationFailures.WithLabelValues("emit").Inc()
		logger.Warn().Err(err).Str("channel", channel).Str("event", event).Msg("realtime emit failed")
	}
}
