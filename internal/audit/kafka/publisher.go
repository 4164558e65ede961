// Package kafka mirrors audit entries to a Kafka topic for downstream
// consumers (SIEM, warehouse). The file partition store remains the source of
// truth; the trail treats mirror failures as fail-open and only logs them.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"verity/internal/audit"
)

// Publisher produces one record per audit entry, keyed by entity id so all
// entries for an entity land on the same partition in order.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// New connects to the given brokers and returns a publisher for the topic.
func New(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}

	p := &Publisher{client: client, topic: topic, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Mirror publishes the entry synchronously. Implements audit.Mirror.
func (p *Publisher) Mirror(ctx context.Context, e audit.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka: encode entry: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.EntityID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce entry %s: %w", e.ID, err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
