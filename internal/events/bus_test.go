package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pricing/internal/events"
)

type stubStore struct {
	lastID      uuid.UUID
	lastTopic   string
	lastPayload []byte
	lastAt      time.Time
	inserts     int
}

func (s *stubStore) InsertDomainEvent(_ context.Context, id uuid.UUID, topic string, payload []byte, createdAt time.Time) error {
	s.lastID = id
	s.lastTopic = topic
	s.lastPayload = payload
	s.lastAt = createdAt
	s.inserts++
	return nil
}

type captureNotifier struct {
	events []events.DomainEvent
}

func (c *captureNotifier) Notify(_ context.Context, event events.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{notifier},
		Now:       func() time.Time { return fixed },
	}

	event, err := bus.Emit(context.Background(), events.TopicQuoteComputed, map[string]any{"total": 12345})
	require.NoError(t, err)
	require.Equal(t, events.TopicQuoteComputed, store.lastTopic)
	require.JSONEq(t, `{"total":12345}`, string(store.lastPayload))
	require.Equal(t, fixed, store.lastAt)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)
}

func TestEmitRejectsEmptyTopic(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), "  ", nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}
	_, err := bus.Emit(context.Background(), events.TopicRulesUpdated, []byte("{not json"))
	require.Error(t, err)
	require.Zero(t, store.inserts)
}

func TestEmitDefaultsNilPayloadToEmptyObject(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}
	_, err := bus.Emit(context.Background(), events.TopicCouponRedeemed, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(store.lastPayload))
}
