// v0
// internal/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlio/rover/internal/circuitbreaker"
	"amlio/rover/internal/distance"
	"amlio/rover/internal/logging"
)

type fakeToken struct {
	err      error
	timedOut bool
}

func (t *fakeToken) Wait() bool                     { return !t.timedOut }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// fakeMQTT only implements what the sink calls; other methods panic.
type fakeMQTT struct {
	mqtt.Client
	mu           sync.Mutex
	topics       []string
	payloads     [][]byte
	err          error
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))
	return &fakeToken{err: f.err}
}

func (f *fakeMQTT) Disconnect(uint) { f.disconnected = true }

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestNewMessage(t *testing.T) {
	ts := time.Date(2025, 5, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	msg := NewMessage("rover-1", ts, distance.Reading{Left: 25, Right: 18})
	assert.Len(t, msg.ID, 36)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"distances":{"gauche":25,"droite":18}`)
}

func TestMQTTSinkPublishes(t *testing.T) {
	client := &fakeMQTT{}
	sink := NewMQTTSink(client, "rover", "r1", nil)
	assert.Equal(t, "rover/r1/distances", sink.Topic())

	msg := NewMessage("r1", time.Now(), distance.Reading{Left: 1, Right: 2})
	require.NoError(t, sink.Publish(context.Background(), msg))
	require.Len(t, client.topics, 1)
	assert.Equal(t, "rover/r1/distances", client.topics[0])

	var got Message
	require.NoError(t, json.Unmarshal(client.payloads[0], &got))
	assert.Equal(t, msg.ID, got.ID)

	require.NoError(t, sink.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTSinkBreakerFastFails(t *testing.T) {
	client := &fakeMQTT{err: errors.New("broker gone")}
	brk := circuitbreaker.New("mqtt", circuitbreaker.Config{MaxFailures: 1, ResetTimeout: time.Minute}, logging.Discard())
	sink := NewMQTTSink(client, "rover", "r1", brk)
	msg := NewMessage("r1", time.Now(), distance.Zero())

	assert.Error(t, sink.Publish(context.Background(), msg))
	assert.ErrorIs(t, sink.Publish(context.Background(), msg), circuitbreaker.ErrOpen)
	assert.Len(t, client.topics, 1)
}

func TestKafkaSinkKeysByRover(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(w, nil, nil)
	msg := NewMessage("r9", time.Now(), distance.Reading{Left: 3, Right: 4})
	require.NoError(t, sink.Publish(context.Background(), msg))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "r9", string(w.msgs[0].Key))
	assert.NoError(t, sink.Close())
}

type recordingSink struct {
	name string
	err  error
	n    int
}

func (s *recordingSink) Name() string { return s.name }
func (s *recordingSink) Publish(context.Context, Message) error {
	s.n++
	return s.err
}
func (s *recordingSink) Close() error { return nil }

func TestPublisherSkipsUntilFirstSample(t *testing.T) {
	store := distance.NewStore()
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	outcomes := map[string]error{}
	p := NewPublisher(logging.Discard(), "r1", store, time.Second, func(name string, err error) { outcomes[name] = err }, bad, ok)

	require.NoError(t, p.PublishOnce(context.Background()))
	assert.Zero(t, ok.n)

	require.NoError(t, store.Set(distance.Reading{Left: 10, Right: 11}))
	err := p.PublishOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, ok.n, "a failing sink does not stop the others")
	assert.Equal(t, 1, bad.n)
	assert.NoError(t, outcomes["ok"])
	assert.Error(t, outcomes["bad"])
}

func TestPublisherRunWithoutSinksReturns(t *testing.T) {
	p := NewPublisher(logging.Discard(), "r1", distance.NewStore(), time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately without sinks")
	}
}
