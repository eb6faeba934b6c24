package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const MeetingEventsChannel = "meeting_events"

// MeetingEvent is the envelope consumed by the notification and video
// provisioning workers. Those workers live outside this service.
type MeetingEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"` // meeting.confirmed, meeting.canceled
	MeetingID   string    `json:"meeting_id"`
	HostID      string    `json:"host_id"`
	GuestID     string    `json:"guest_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CanceledBy  string    `json:"canceled_by,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Dispatcher publishes non-critical side effects of meeting transitions.
// Delivery is best-effort: a publish failure must never affect the
// transition that triggered it, so callers log the error and move on.
type Dispatcher interface {
	MeetingConfirmed(ctx context.Context, ev *MeetingEvent) error
	MeetingCanceled(ctx context.Context, ev *MeetingEvent) error
}

type RedisDispatcher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisDispatcher(rdb *redis.Client, logger *zap.Logger) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb, logger: logger}
}

func (d *RedisDispatcher) MeetingConfirmed(ctx context.Context, ev *MeetingEvent) error {
	ev.EventType = "meeting.confirmed"
	return d.publish(ctx, ev)
}

func (d *RedisDispatcher) MeetingCanceled(ctx context.Context, ev *MeetingEvent) error {
	ev.EventType = "meeting.canceled"
	return d.publish(ctx, ev)
}

func (d *RedisDispatcher) publish(ctx context.Context, ev *MeetingEvent) error {
	ev.EventID = uuid.NewString()
	ev.Timestamp = time.Now()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal meeting event: %w", err)
	}
	if err := d.rdb.Publish(ctx, MeetingEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish meeting event: %w", err)
	}

	d.logger.Info("meeting event published",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", ev.EventType),
		zap.String("meeting_id", ev.MeetingID))
	return nil
}

// Noop is used in tests and when no broker is configured.
type Noop struct{}

func (Noop) MeetingConfirmed(context.Context, *MeetingEvent) error { return nil }
func (Noop) MeetingCanceled(context.Context, *MeetingEvent) error  { return nil }
