package audit

import "context"

// Store persists audit events. Append is fail-closed from the publisher's
// point of view: if the event cannot be persisted the emitting operation
// must not commit.
type Store interface {
	Append(ctx context.Context, event Event) error
}
