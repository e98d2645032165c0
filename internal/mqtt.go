// v1
// mqtt.go
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTIO owns the broker connection: it fans inbound perception topics
// out to the update handlers and publishes the actuation command. The
// paho client invokes subscription callbacks one at a time, so
// handlers never interleave with each other.
type MQTTIO struct {
	cfg    *AppConfig
	lg     *slog.Logger
	client mqtt.Client
}

func NewMQTTIO(cfg *AppConfig, lg *slog.Logger) (*MQTTIO, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		lg.Info("mqtt connected", "broker", cfg.MQTTBroker, "client_id", cfg.MQTTClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		lg.Warn("mqtt connection lost, will auto-reconnect", "error", err)
	}

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.MQTTBroker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.MQTTBroker, err)
	}
	return &MQTTIO{cfg: cfg, lg: lg, client: c}, nil
}

// SubscribePerception wires the four inbound topics to their update
// handlers. Decode failures are logged and swallowed at this boundary;
// the previous field value stays in place.
func (m *MQTTIO) SubscribePerception(h *Handlers, stats *EngineStats) error {
	subs := map[string]func([]byte) error{
		m.cfg.SignalTopic:       h.HandleSignal,
		m.cfg.CrosswalkTopic:    h.HandleCrosswalk,
		m.cfg.ModelCommandTopic: h.HandleModelCommand,
		m.cfg.ImageTopic:        h.HandleFrame,
	}
	for topic, handle := range subs {
		topic, handle := topic, handle
		token := m.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := handle(msg.Payload()); err != nil {
				stats.IncDecodeErrors()
				m.lg.Warn("decode failed, keeping stale value", "topic", topic, "error", err)
			}
		})
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		m.lg.Info("subscribed", "topic", topic)
	}
	return nil
}

// PublishTwist publishes the actuation command as JSON at QoS 0.
func (m *MQTTIO) PublishTwist(_ context.Context, t Twist) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal twist: %w", err)
	}
	token := m.client.Publish(m.cfg.TwistTopic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.cfg.TwistTopic, err)
	}
	return nil
}

func (m *MQTTIO) Close() {
	m.client.Disconnect(250)
	m.lg.Info("mqtt disconnected")
}
