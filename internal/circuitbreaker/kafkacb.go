// v3
// internal/circuitbreaker/kafkacb.go
package circuitbreaker

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
)

// kafkaMessageWriter mirrors the subset of kafka.Writer used by the wrapper.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// CBKafkaWriter wraps a kafka.Writer with circuit-breaker protection.
type CBKafkaWriter struct {
	breaker *Breaker
	writer  kafkaMessageWriter
}

// NewCBKafkaWriter wires breaker protections around the provided kafka
// writer. A nil breaker disables the protection.
func NewCBKafkaWriter(writer kafkaMessageWriter, breaker *Breaker) *CBKafkaWriter {
	return &CBKafkaWriter{writer: writer, breaker: breaker}
}

// WriteMessages publishes the messages once; there is no retry.
func (w *CBKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w == nil || w.writer == nil {
		return errors.New("nil kafka writer")
	}
	if w.breaker == nil {
		return w.writer.WriteMessages(ctx, msgs...)
	}
	return w.breaker.Execute(ctx, func(ctx context.Context) error {
		return w.writer.WriteMessages(ctx, msgs...)
	})
}
