package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"reitvest/internal/platform/kafka"
)

const (
	relayBatchSize = 100
	relayPollEvery = 5 * time.Second
)

// Relay drains the outbox into Kafka. It wakes on postgres NOTIFY so
// delivery is prompt, with a polling fallback that also catches entries
// left behind by a crash between publish and mark.
type Relay struct {
	store    *PostgresStore
	producer *kafka.Producer
	logger   *slog.Logger
	connect  func(ctx context.Context) (*pgx.Conn, error)
}

// NewRelay builds a relay over the given outbox store and producer. The
// postgres URL is used for a dedicated LISTEN connection, separate from the
// database/sql pool.
func NewRelay(store *PostgresStore, producer *kafka.Producer, postgresURL string, logger *slog.Logger) *Relay {
	return &Relay{
		store:    store,
		producer: producer,
		logger:   logger,
		connect: func(ctx context.Context) (*pgx.Conn, error) {
			return pgx.Connect(ctx, postgresURL)
		},
	}
}

// Run drains until ctx is cancelled. Publish errors are logged and retried
// on the next wakeup; entries are only marked published after the broker
// acknowledged them, so delivery is at-least-once.
func (r *Relay) Run(ctx context.Context) error {
	listen, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer listen.Close(context.Background())

	if _, err := listen.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}

	for {
		if err := r.drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
		}

		waitCtx, cancel := context.WithTimeout(ctx, relayPollEvery)
		_, err := listen.WaitForNotification(waitCtx)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.WarnContext(ctx, "outbox listen interrupted, falling back to polling", "error", err)
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	for {
		batch, err := r.store.PendingBatch(ctx, relayBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, row := range batch {
			if err := r.producer.Publish(ctx, []byte(row.Key), row.Payload); err != nil {
				return err
			}
			if err := r.store.MarkPublished(ctx, row.ID, time.Now()); err != nil {
				return err
			}
		}
		if len(batch) < relayBatchSize {
			return nil
		}
	}
}
