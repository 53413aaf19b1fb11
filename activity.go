package credentials

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserStatusChanged ActivityEventType = "user.status.changed"
	ActivityEventAccountRegistered ActivityEventType = "account.registered"
	ActivityEventAccountActivated  ActivityEventType = "account.activated"
	ActivityEventActivationResent  ActivityEventType = "account.activation.resent"
	ActivityEventDetailsUpdated    ActivityEventType = "account.details.updated"
	ActivityEventPasswordChanged   ActivityEventType = "account.password.changed"
	ActivityEventAccountDeleted    ActivityEventType = "account.deleted"
	ActivityEventThrottled         ActivityEventType = "account.throttled"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus UserStatus
	ToStatus   UserStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// userActor is the actor ref for a signed in user acting on their account.
func userActor(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "system"}
	}
	return ActorRef{ID: user.ID.String(), Type: "user"}
}

func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil && logger != nil {
		logger.Warn("activity sink error", "event", string(event.EventType), "error", err)
	}
}
