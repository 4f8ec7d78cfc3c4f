package notifications

import (
	"context"
	"fmt"

	"ticketly/internal/shared/config"
	"ticketly/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher defines the contract for publishing availability intents
type Publisher interface {
	PublishIntent(ctx context.Context, intent *AvailabilityIntent) error
	Close() error
}

// KafkaPublisher publishes availability intents to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.Logger
}

// NewKafkaPublisher creates a sync producer wired for safe, ordered
// delivery: acks from all in-sync replicas, idempotent writes, and hash
// partitioning on user so each subject's intents stay ordered.
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) (Publisher, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Timeout = cfg.Timeout
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Info("kafka intent publisher created", "topic", cfg.IntentTopic)
	return &KafkaPublisher{
		producer: producer,
		topic:    cfg.IntentTopic,
		logger:   log,
	}, nil
}

// PublishIntent publishes a single availability intent
func (p *KafkaPublisher) PublishIntent(ctx context.Context, intent *AvailabilityIntent) error {
	payload, err := intent.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(intent.PartitionKey()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("intent_id"), Value: []byte(intent.ID.String())},
			{Key: []byte("event_id"), Value: []byte(intent.EventID.String())},
			{Key: []byte("content_type"), Value: []byte("application/json")},
		},
		Timestamp: intent.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish intent: %w", err)
	}

	p.logger.Debug("availability intent published",
		"topic", p.topic, "partition", partition, "offset", offset,
		"entry_id", intent.EntryID.String())
	return nil
}

// Close shuts down the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher discards intents. Used when Kafka is disabled; the
// notification record in Postgres remains the durable audit trail.
type NoopPublisher struct{}

func NewNoopPublisher() Publisher {
	return NoopPublisher{}
}

func (NoopPublisher) PublishIntent(ctx context.Context, intent *AvailabilityIntent) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
