// v1
// ledger.go
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"drivex/decision/internal/circuitbreaker"
)

// DriveLedger appends decision transitions to a Kafka topic through a
// circuit-breaker-wrapped writer. The ledger is an audit trail, not a
// control path: the engine keeps driving when a write fails.
type DriveLedger struct {
	lg     *slog.Logger
	topic  string
	raw    *kafka.Writer
	writer *circuitbreaker.CBKafkaWriter
}

// NewDriveLedger wires the ledger writer, or returns nil when no
// brokers are configured; the engine is nil-safe without it.
func NewDriveLedger(cfg *AppConfig, lg *slog.Logger) (*DriveLedger, error) {
	if len(cfg.KafkaBrokers) == 0 {
		lg.Info("drive ledger disabled, no kafka brokers configured")
		return nil, nil
	}
	breaker, err := circuitbreaker.NewKafkaBreakerFromEnv("decision-ledger-writer", nil)
	if err != nil {
		return nil, fmt.Errorf("ledger breaker: %w", err)
	}
	raw := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.LedgerTopic,
		RequiredAcks: kafka.RequireAll,
	}
	lg.Info("drive ledger wired", "topic", cfg.LedgerTopic, "brokers", cfg.KafkaBrokers,
		"breaker_enabled", breaker.Enabled())
	return &DriveLedger{lg: lg, topic: cfg.LedgerTopic, raw: raw, writer: circuitbreaker.NewCBKafkaWriter(raw, breaker)}, nil
}

// Record publishes one JSON ledger event.
func (l *DriveLedger) Record(ctx context.Context, ev LedgerEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}
	msg := kafka.Message{Key: []byte(ev.Reason), Value: b, Time: time.Now()}
	if err := l.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("ledger write: %w", err)
	}
	return nil
}

func (l *DriveLedger) Close() {
	if l == nil {
		return
	}
	_ = l.raw.Close()
	l.lg.Info("ledger writer closed")
}
