// v1
// simulator.go
package internal

import (
	"encoding/json"
	"math"
	"math/rand"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PerceptionSimulator publishes synthetic perception messages to a
// broker so the decision loop can be exercised without the real
// classifier, crosswalk estimator and driving model. Bench tool only.
type PerceptionSimulator struct {
	cfg    *AppConfig
	client mqtt.Client
	ticker *time.Ticker
	quit   chan struct{}
	frame  []byte
	seq    int
}

// Signals cycled by the simulator; the empty label covers the
// pass-through case.
var simSignals = []string{"", SignalForward, "", SignalStop, "", SignalChess}

// NewPerceptionSimulator connects to the broker and prepares the
// publisher. interval is the gap between message bursts.
func NewPerceptionSimulator(cfg *AppConfig, interval time.Duration) (*PerceptionSimulator, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(cfg.MQTTClientID + "-sim")
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &PerceptionSimulator{
		cfg:    cfg,
		client: c,
		ticker: time.NewTicker(interval),
		quit:   make(chan struct{}),
		frame:  fakeJPEG(),
	}, nil
}

// Start begins publishing bursts at regular intervals: one frame, one
// crosswalk confidence, one model command, and a signal label cycling
// through the known classes.
func (s *PerceptionSimulator) Start() {
	go func() {
		for {
			select {
			case <-s.quit:
				return
			case t := <-s.ticker.C:
				s.publishBurst(t)
			}
		}
	}()
}

func (s *PerceptionSimulator) publishBurst(t time.Time) {
	s.client.Publish(s.cfg.ImageTopic, 0, false, s.frame)

	confidence := rand.Float64()
	s.client.Publish(s.cfg.CrosswalkTopic, 0, false, formatFloat(confidence))

	cmd := ModelCommand{
		Steering: 0.3 * math.Sin(float64(t.UnixMilli())/1000),
		Velocity: 0.5 + 0.2*rand.Float64(),
	}
	payload, _ := json.Marshal(cmd)
	s.client.Publish(s.cfg.ModelCommandTopic, 0, false, payload)

	s.client.Publish(s.cfg.SignalTopic, 0, false, []byte(simSignals[s.seq%len(simSignals)]))
	s.seq++
}

// Stop halts the simulator.
func (s *PerceptionSimulator) Stop() {
	close(s.quit)
	s.ticker.Stop()
	s.client.Disconnect(250)
}

func formatFloat(f float64) []byte {
	return []byte(strconv.FormatFloat(f, 'f', 4, 64))
}

// fakeJPEG returns a minimal JPEG-looking payload: just enough bytes
// for the frame handler to accept and the /frame endpoint to serve.
func fakeJPEG() []byte {
	b := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	b = append(b, make([]byte, 64)...)
	return append(b, 0xFF, 0xD9)
}
