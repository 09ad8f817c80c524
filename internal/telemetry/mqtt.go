// v1
// internal/telemetry/mqtt.go
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"amlio/rover/internal/circuitbreaker"
)

const mqttPublishTimeout = 2 * time.Second

var errPublishTimeout = errors.New("mqtt publish timed out")

// DialMQTT connects to brokerAddr (e.g. tcp://localhost:1883).
func DialMQTT(brokerAddr, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerAddr).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", brokerAddr, token.Error())
	}
	return c, nil
}

// MQTTSink publishes readings at QoS 0 on <prefix>/<roverId>/distances.
type MQTTSink struct {
	client mqtt.Client
	topic  string
	brk    *circuitbreaker.Breaker
}

func NewMQTTSink(client mqtt.Client, prefix, roverID string, brk *circuitbreaker.Breaker) *MQTTSink {
	return &MQTTSink{client: client, topic: prefix + "/" + roverID + "/distances", brk: brk}
}

func (s *MQTTSink) Name() string  { return "mqtt" }
func (s *MQTTSink) Topic() string { return s.topic }

func (s *MQTTSink) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	send := func(context.Context) error {
		token := s.client.Publish(s.topic, 0, false, payload)
		if !token.WaitTimeout(mqttPublishTimeout) {
			return errPublishTimeout
		}
		return token.Error()
	}
	if s.brk == nil {
		return send(ctx)
	}
	return s.brk.Execute(ctx, send)
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
