package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates the audit event categories emitted by the
// account lifecycle.
type ActivityEventType string

const (
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventAccountRegistered ActivityEventType = "account.registered"
	ActivityEventAccountCreated    ActivityEventType = "account.created"
	ActivityEventProfileUpdated    ActivityEventType = "account.profile.updated"
	ActivityEventStatusChanged     ActivityEventType = "account.status.changed"
	ActivityEventRolesReplaced     ActivityEventType = "account.roles.replaced"
	ActivityEventAccountDeleted    ActivityEventType = "account.deleted"
)

// ActivityEvent captures audit-friendly information about an account action.
// AccountID is empty when no account resolved, e.g. a failed login against an
// unknown email.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes. Sink
// failures are logged and never fail the operation that produced the event.
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
