// v1
// internal/telemetry/kafka.go
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"

	"amlio/rover/internal/circuitbreaker"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter keys messages by rover ID so one rover stays on one
// partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaSink writes each reading as one JSON record.
type KafkaSink struct {
	writer *circuitbreaker.CBKafkaWriter
	closer io.Closer
}

// NewKafkaSink wraps w with brk. closer may be nil.
func NewKafkaSink(w messageWriter, closer io.Closer, brk *circuitbreaker.Breaker) *KafkaSink {
	return &KafkaSink{writer: circuitbreaker.NewCBKafkaWriter(w, brk), closer: closer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.RoverID), Value: b, Time: msg.Timestamp})
}

func (s *KafkaSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
