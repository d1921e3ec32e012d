package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const insertDomainEvent = `
INSERT INTO domain_events (id, topic, payload, created_at)
VALUES ($1, $2, $3, $4)
`

// InsertDomainEvent appends one event to the outbox table.
func (q *Queries) InsertDomainEvent(ctx context.Context, id uuid.UUID, topic string, payload []byte, createdAt time.Time) error {
	_, err := q.db.Exec(ctx, insertDomainEvent, id, topic, payload, createdAt)
	return err
}

const listDomainEvents = `
SELECT id, topic, payload, created_at
FROM domain_events
WHERE created_at >= $1
ORDER BY created_at ASC
LIMIT $2
`

// DomainEventRow is one persisted event as read back for inspection.
type DomainEventRow struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ListDomainEvents returns events recorded at or after the given time.
func (q *Queries) ListDomainEvents(ctx context.Context, since time.Time, limit int32) ([]DomainEventRow, error) {
	rows, err := q.db.Query(ctx, listDomainEvents, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DomainEventRow
	for rows.Next() {
		var e DomainEventRow
		if err := rows.Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
