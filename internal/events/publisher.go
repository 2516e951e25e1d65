package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher defines the interface for publishing import events
type EventPublisher interface {
	PublishImportEvent(ctx context.Context, event *ImportEvent) error
	Close() error
}

// watermillEventPublisher publishes events through any watermill publisher
type watermillEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	watermillEventPublisher
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		watermillEventPublisher{
			publisher: publisher,
			logger:    config.Logger,
			topicName: config.TopicName,
		},
	}, nil
}

// ChannelEventPublisher keeps events in process using watermill's GoChannel.
// Consumers obtain messages through Subscribe.
type ChannelEventPublisher struct {
	watermillEventPublisher
	channel *gochannel.GoChannel
}

func NewChannelEventPublisher(topicName string, logger *slog.Logger) *ChannelEventPublisher {
	channel := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))

	return &ChannelEventPublisher{
		watermillEventPublisher: watermillEventPublisher{
			publisher: channel,
			logger:    logger,
			topicName: topicName,
		},
		channel: channel,
	}
}

// Subscribe returns the stream of messages published on the configured topic
func (p *ChannelEventPublisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.channel.Subscribe(ctx, p.topicName)
}

// PublishImportEvent publishes an import event to the configured topic
func (p *watermillEventPublisher) PublishImportEvent(ctx context.Context, event *ImportEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal import event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.SetContext(ctx)

	// Add metadata headers
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish import event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish import event: %w", err)
	}

	p.logger.Info("Published import event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *watermillEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher is a mock implementation for testing
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []ImportEvent
	Logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockEventPublisher{
		Events: make([]ImportEvent, 0),
		Logger: logger,
	}
}

// PublishImportEvent stores the event in memory
func (m *MockEventPublisher) PublishImportEvent(ctx context.Context, event *ImportEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()

	m.Logger.Info("Mock: Published import event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns all published events
func (m *MockEventPublisher) GetPublishedEvents() []ImportEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ImportEvent(nil), m.Events...)
}

// ClearEvents clears all published events
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	m.Events = make([]ImportEvent, 0)
	m.mu.Unlock()
}
