package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeSource struct {
	pending   []Record
	published []int64
}

func (s *fakeSource) Relay(ctx context.Context, limit int, publish func(context.Context, []Record) error) (int, error) {
	batch := s.pending
	if len(batch) > limit {
		batch = batch[:limit]
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := publish(ctx, batch); err != nil {
		return 0, err
	}
	for _, r := range batch {
		s.published = append(s.published, r.ID)
	}
	s.pending = s.pending[len(batch):]
	return len(batch), nil
}

func newTestPublisher(src Source, batch int) *Publisher {
	return NewPublisher(src, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{BatchSize: batch})
}

func TestPublishBatchWritesMessagesAndMarksRecords(t *testing.T) {
	src := &fakeSource{pending: []Record{
		{ID: 1, EventID: "e1", AggregateID: "b1", PartitionKey: "prov-1", EventType: "scheduling.booking.created.v1", Payload: []byte(`{"a":1}`)},
		{ID: 2, EventID: "e2", AggregateID: "b2", EventType: "scheduling.booking.cancelled.v1", Payload: []byte(`{}`)},
		{ID: 3, EventID: "e3", AggregateID: "b3", EventType: "scheduling.booking.created.v1"},
	}}
	w := &fakeWriter{}
	p := newTestPublisher(src, 2)

	n, err := p.PublishBatch(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, src.published)

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "scheduling.booking.created.v1", w.msgs[0].Topic)
	assert.Equal(t, "prov-1", string(w.msgs[0].Key))
	assert.Equal(t, "b2", string(w.msgs[1].Key))
	assert.Equal(t, kafkax.EventMeta{EventID: "e1", EventType: "scheduling.booking.created.v1"}, kafkax.ExtractEventMeta(w.msgs[0]))
}

func TestPublishBatchLeavesRecordsOnWriteFailure(t *testing.T) {
	src := &fakeSource{pending: []Record{{ID: 1, EventID: "e1", AggregateID: "b1", EventType: "t"}}}
	w := &fakeWriter{err: errors.New("broker down")}

	_, err := newTestPublisher(src, 10).PublishBatch(context.Background(), w)
	require.Error(t, err)
	assert.Empty(t, src.published)
	assert.Len(t, src.pending, 1)
}

func TestEventKeyDefaultsToAggregate(t *testing.T) {
	assert.Equal(t, "b1", Event{AggregateID: "b1"}.Key())
	assert.Equal(t, "p1", Event{AggregateID: "b1", PartitionKey: "p1"}.Key())
}

func TestRunWithoutBrokersReturns(t *testing.T) {
	p := newTestPublisher(&fakeSource{}, 10)
	p.Run(context.Background())
}
