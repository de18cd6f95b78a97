package goAuthClient

import "context"

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, user *User, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event := AuditEvent{
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = user.ID
		event.Username = user.Username
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}
