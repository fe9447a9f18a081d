package roadside

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered          ActivityEventType = "auth.register"
	ActivityEventLoginSuccess        ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure        ActivityEventType = "auth.login.failure"
	ActivityEventTokenRefreshed      ActivityEventType = "auth.token.refreshed"
	ActivityEventRefreshFailure      ActivityEventType = "auth.token.refresh_failure"
	ActivityEventLogout              ActivityEventType = "auth.logout"
	ActivityEventUserDeactivated     ActivityEventType = "user.deactivated"
	ActivityEventSessionCreated      ActivityEventType = "session.created"
	ActivityEventSessionStatusChange ActivityEventType = "session.status.changed"
	ActivityEventOfficerAssigned     ActivityEventType = "session.officer.assigned"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	SessionID  string
	FromStatus string
	ToStatus   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing or telemetry.
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

// MultiActivitySink fans an event out to every sink and returns the first error.
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NormalizeActivitySink returns a no-op sink for nil.
func NormalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// RecordActivity stamps the event and sends it to sink. Sink failures are
// logged and never surface to the caller.
func RecordActivity(ctx context.Context, sink ActivitySink, logger Logger, now func() time.Time, event ActivityEvent) {
	if sink == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		if now == nil {
			now = time.Now
		}
		event.OccurredAt = now().UTC()
	}
	if err := sink.Record(ctx, event); err != nil {
		resolveLogger(logger).Warn("activity sink error", "event", event.EventType, "error", err)
	}
}
