package outbox

import (
	"context"
	"time"
)

// Event is the domain event envelope written to the outbox table in the same
// transaction as the change it describes. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	// PartitionKey groups related events on one partition; AggregateID when empty.
	PartitionKey string
	Payload      []byte
}

func (e Event) Key() string {
	if e.PartitionKey != "" {
		return e.PartitionKey
	}
	return e.AggregateID
}

// Record is a stored event waiting to be relayed.
type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

// Writer appends events inside an open unit of work.
type Writer interface {
	Append(ctx context.Context, evt Event) error
}

// Source hands out unpublished records. Relay locks up to limit records,
// passes them to publish and marks them published only if publish succeeds.
type Source interface {
	Relay(ctx context.Context, limit int, publish func(context.Context, []Record) error) (int, error)
}
