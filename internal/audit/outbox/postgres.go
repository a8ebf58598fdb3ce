// Package outbox implements the transactional audit outbox. Events are
// appended in the same database transaction as the ledger mutation they
// describe, then relayed to Kafka by the Relay worker. Kafka consumers see
// only events whose operations actually committed.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reitvest/internal/audit"
	txcontext "reitvest/pkg/platform/tx"
)

// channel is the postgres NOTIFY channel the relay listens on.
const channel = "reitvest_audit_outbox"

// PostgresStore implements audit.Store using the transactional outbox
// pattern.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure relayed to Kafka.
type payload struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	Actor      string `json:"actor,omitempty"`
	Fundraiser string `json:"fundraiser,omitempty"`
	Investor   string `json:"investor,omitempty"`
	Investment string `json:"investment,omitempty"`
	Amount     uint64 `json:"amount,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// Append writes the event to the outbox table and notifies the relay. The
// insert joins the caller's transaction when one is carried in ctx.
func (s *PostgresStore) Append(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(payload{
		ID:         event.ID.String(),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Action:     string(event.Action),
		Actor:      event.Actor,
		Fundraiser: event.Fundraiser,
		Investor:   event.Investor,
		Investment: event.Investment,
		Amount:     event.Amount,
		RequestID:  event.RequestID,
		ClientIP:   event.ClientIP,
		UserAgent:  event.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	key := event.Investment
	if key == "" {
		key = event.Fundraiser
	}

	exec := s.execer(ctx)
	if _, err := exec.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, event_key, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, event.ID, key, body, event.Timestamp); err != nil {
		return fmt.Errorf("append to audit outbox: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channel, event.ID.String()); err != nil {
		return fmt.Errorf("notify audit outbox: %w", err)
	}
	return nil
}

// Row is one unpublished outbox entry.
type Row struct {
	ID      uuid.UUID
	Key     string
	Payload []byte
}

// PendingBatch returns up to limit unpublished entries in creation order.
func (s *PostgresStore) PendingBatch(ctx context.Context, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_key, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var batch []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Key, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, r)
	}
	return batch, rows.Err()
}

// MarkPublished stamps an entry as delivered to Kafka.
func (s *PostgresStore) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2 WHERE id = $1
	`, id, at); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
