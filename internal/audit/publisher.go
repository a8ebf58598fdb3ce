package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"reitvest/pkg/requestcontext"
)

// Publisher captures structured audit events with fail-closed semantics.
// The write is synchronous: the calling operation blocks until the event is
// persisted, and MUST abort if persistence fails. A custody movement with
// no audit record is worse than a rejected request.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Emit enriches the event from the request context and appends it to the
// store. The event joins whatever transaction is carried in ctx, so a
// rolled-back operation leaves no audit record either.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires an action")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "CRITICAL: audit append failed",
			"action", event.Action,
			"investment", event.Investment,
			"error", err,
		)
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
