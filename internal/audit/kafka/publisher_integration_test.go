//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"verity/internal/audit"
	auditkafka "verity/internal/audit/kafka"
)

const testTopic = "verity.audit.test"

type PublisherSuite struct {
	suite.Suite
	container *tcredpanda.Container
	brokers   []string
	publisher *auditkafka.Publisher
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "redpandadata/redpanda:v24.2.5")
	s.Require().NoError(err)
	s.container = container

	broker, err := container.KafkaSeedBroker(ctx)
	s.Require().NoError(err)
	s.brokers = []string{broker}

	s.publisher, err = auditkafka.New(s.brokers, testTopic)
	s.Require().NoError(err)
}

func (s *PublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PublisherSuite) TestMirrorDeliversEntry() {
	ctx := context.Background()

	entry := audit.Entry{
		ID:         "abc123def456abcd",
		EntityType: "dispute",
		EntityID:   "d-1",
		Action:     audit.ActionDisputeCreated,
		Details:    map[string]any{"customer_reason": "name mismatch"},
		UserID:     "ops-1",
		Timestamp:  time.Now().UTC(),
	}
	hash, err := audit.ComputeHash(entry)
	s.Require().NoError(err)
	entry.Hash = hash

	s.Require().NoError(s.publisher.Mirror(ctx, entry))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	fetches := consumer.PollFetches(fetchCtx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("d-1", string(records[0].Key), "records are keyed by entity id")

	var got audit.Entry
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(entry.ID, got.ID)
	s.Equal(entry.Action, got.Action)
	s.Equal(entry.Hash, got.Hash)
}
