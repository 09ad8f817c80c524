// v0
// internal/telemetry/message.go
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"amlio/rover/internal/distance"
)

// Message is one exported distance sample.
type Message struct {
	ID        string           `json:"id"`
	RoverID   string           `json:"roverId"`
	Timestamp time.Time        `json:"timestamp"`
	Distances distance.Reading `json:"distances"`
}

// NewMessage stamps r with a fresh ID and a UTC timestamp.
func NewMessage(roverID string, ts time.Time, r distance.Reading) Message {
	return Message{ID: uuid.NewString(), RoverID: roverID, Timestamp: ts.UTC(), Distances: r}
}

// Sink receives telemetry messages.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Close() error
}
