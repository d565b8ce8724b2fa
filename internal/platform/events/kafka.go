package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher writes events to topic. Messages are keyed by appointment
// id so every event of one appointment lands on the same partition.
// The writer is asynchronous: Publish returns once the message is queued and
// delivery failures are logged through logger.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Async:        true,
		Completion:   logCompletion(logger.With().Str("component", "events").Str("topic", topic).Logger()),
	}}
}

// logCompletion reports failed asynchronous deliveries.
func logCompletion(logger zerolog.Logger) func(messages []kafka.Message, err error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range messages {
			logger.Error().Err(err).
				Str("appointment_id", string(m.Key)).
				Msg("failed to deliver appointment event")
		}
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.AppointmentID.String()),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", evt.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
