// v1
// engine.go
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Loop states. There is no transition back from ShuttingDown.
const (
	StateIdle         = "idle"
	StateActive       = "active"
	StateHolding      = "holding"
	StateShuttingDown = "shutting-down"
)

// Publisher emits the actuation command. Satisfied by MQTTIO; tests
// substitute a capturing fake.
type Publisher interface {
	PublishTwist(ctx context.Context, t Twist) error
}

// LedgerRecorder appends decision transitions to the drive ledger.
// A nil recorder disables ledger output.
type LedgerRecorder interface {
	Record(ctx context.Context, ev LedgerEvent) error
}

// EngineStats is the loop's observable state, shared with the HTTP
// server and the transport callbacks, so it carries its own lock.
type EngineStats struct {
	mu           sync.Mutex
	stats        Stats
	state        string
	crosswalkPct float64
}

func NewEngineStats() *EngineStats {
	return &EngineStats{state: StateIdle}
}

func (s *EngineStats) IncTicks()        { s.mu.Lock(); s.stats.Ticks++; s.mu.Unlock() }
func (s *EngineStats) IncIdleSkips()    { s.mu.Lock(); s.stats.IdleSkips++; s.mu.Unlock() }
func (s *EngineStats) IncCommandsOut()  { s.mu.Lock(); s.stats.CommandsOut++; s.mu.Unlock() }
func (s *EngineStats) IncHolds()        { s.mu.Lock(); s.stats.Holds++; s.mu.Unlock() }
func (s *EngineStats) IncDecodeErrors() { s.mu.Lock(); s.stats.DecodeErrors++; s.mu.Unlock() }
func (s *EngineStats) IncLedgerWrites() { s.mu.Lock(); s.stats.LedgerWrites++; s.mu.Unlock() }

func (s *EngineStats) SetState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *EngineStats) SetCrosswalkPct(pct float64) {
	s.mu.Lock()
	s.crosswalkPct = pct
	s.mu.Unlock()
}

// StatusView is what GET /status serves.
type StatusView struct {
	State        string  `json:"state"`
	CrosswalkPct float64 `json:"crosswalkPct"`
	Stats        Stats   `json:"stats"`
}

func (s *EngineStats) View() StatusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusView{State: s.state, CrosswalkPct: s.crosswalkPct, Stats: s.stats}
}

// EngineDeps groups the engine's collaborators.
type EngineDeps struct {
	Pub     Publisher
	State   *VehicleState
	Meta    *ModelMetadata
	Ledger  LedgerRecorder
	Stats   *EngineStats
	Console *Console
}

// Engine is the fixed-rate control loop. Each tick it snapshots the
// vehicle state, evaluates the decision policy and publishes the
// resulting twist. Stop behaviors are modeled as a timed Holding state
// instead of sleeping the loop thread, so the operator abort stays
// responsive during the wait; no command is emitted while holding.
type Engine struct {
	cfg   *AppConfig
	lg    *slog.Logger
	deps  EngineDeps
	stats *EngineStats

	abortOnce sync.Once
	abort     chan struct{}

	// loop-local actuation history; never touched by handlers
	loopState   string
	lastApplied float64
	holdUntil   time.Time
	pending     Decision
}

func NewEngine(cfg *AppConfig, lg *slog.Logger, deps EngineDeps) *Engine {
	return &Engine{
		cfg:       cfg,
		lg:        lg,
		deps:      deps,
		stats:     deps.Stats,
		abort:     make(chan struct{}),
		loopState: StateIdle,
	}
}

// RequestAbort asserts the operator abort, checked once per tick.
// Safe to call from any goroutine, any number of times.
func (e *Engine) RequestAbort() {
	e.abortOnce.Do(func() { close(e.abort) })
}

// Run ticks until the context is cancelled, the operator aborts, or
// the policy signals termination. It returns nil on a clean exit and
// the persistence error if the shutdown sequence failed to save the
// operator's feedback.
func (e *Engine) Run(ctx context.Context) error {
	period := e.cfg.TickPeriod()
	e.lg.Info("engine start", "tick_hz", e.cfg.TickRateHz, "cruise_velocity", e.cfg.Policy.CruiseVelocity,
		"crosswalk_threshold", e.cfg.Policy.CrosswalkThreshold)
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			e.lg.Info("engine stop")
			return nil
		case <-e.abort:
			e.lg.Info("stopping the autonomous driving")
			return e.shutdown(ctx, "operator abort")
		case now := <-tick.C:
			done, err := e.step(ctx, now)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// step processes one tick. It reports done=true when the loop entered
// ShuttingDown and must not tick again.
func (e *Engine) step(ctx context.Context, now time.Time) (bool, error) {
	e.stats.IncTicks()

	if e.loopState == StateHolding {
		if now.Before(e.holdUntil) {
			// Stay responsive to the operator while the stop window runs.
			if e.deps.Console != nil && e.deps.Console.PollAbort() {
				e.lg.Info("stopping the autonomous driving")
				return true, e.shutdown(ctx, "operator abort")
			}
			return false, nil
		}
		if e.pending.Terminate {
			e.lg.Info("detected chessboard, stopping the program")
			return true, e.shutdown(ctx, "chessboard terminate")
		}
		e.transition(StateActive)
		if err := e.publish(ctx, e.pending); err != nil {
			return false, err
		}
		return false, nil
	}

	snap := e.deps.State.Snapshot()
	if !snap.FrameReady {
		e.stats.IncIdleSkips()
		return false, nil
	}
	if e.loopState == StateIdle {
		e.transition(StateActive)
		e.lg.Info("first frame received, loop active")
	}

	// Display-only percentage; the policy reads the raw confidence.
	e.stats.SetCrosswalkPct(math.Round(snap.Crosswalk*10000) / 100)

	d := Decide(snap, e.lastApplied, e.cfg.Policy)
	if d.Reason != "" {
		e.lg.Info("decision", "reason", d.Reason, "signal", snap.Signal,
			"crosswalk", snap.Crosswalk, "velocity", d.Velocity, "hold_ms", d.Hold.Milliseconds())
		e.record(ctx, snap, d)
	}
	if d.Hold > 0 {
		e.transition(StateHolding)
		e.holdUntil = now.Add(d.Hold)
		e.pending = d
		e.stats.IncHolds()
		return false, nil
	}
	if err := e.publish(ctx, d); err != nil {
		return false, err
	}

	if e.deps.Console != nil && e.deps.Console.PollAbort() {
		e.lg.Info("stopping the autonomous driving")
		return true, e.shutdown(ctx, "operator abort")
	}
	return false, nil
}

func (e *Engine) transition(state string) {
	e.loopState = state
	e.stats.SetState(state)
}

// publish emits the six-component twist and remembers the applied
// velocity for the cruise-resume comparison. Transport failures are
// propagated to the process boundary; reconnection is the broker
// client's business.
func (e *Engine) publish(ctx context.Context, d Decision) error {
	if err := e.deps.Pub.PublishTwist(ctx, NewTwist(d.Velocity, d.Steering)); err != nil {
		return fmt.Errorf("publish twist: %w", err)
	}
	e.lastApplied = d.Velocity
	e.stats.IncCommandsOut()
	return nil
}

func (e *Engine) record(ctx context.Context, snap Snapshot, d Decision) {
	if e.deps.Ledger == nil {
		return
	}
	ev := LedgerEvent{
		Signal:      snap.Signal,
		Crosswalk:   snap.Crosswalk,
		Velocity:    d.Velocity,
		Steering:    d.Steering,
		Reason:      d.Reason,
		HoldMs:      d.Hold.Milliseconds(),
		Terminating: d.Terminate,
		Timestamp:   time.Now().UnixMilli(),
	}
	if err := e.deps.Ledger.Record(ctx, ev); err != nil {
		e.lg.Error("ledger write", "reason", d.Reason, "error", err)
		return
	}
	e.stats.IncLedgerWrites()
}

// shutdown runs the one-shot sequence: graceful stop, feedback
// prompts, metadata persist. Terminal; the loop never resumes.
func (e *Engine) shutdown(ctx context.Context, reason string) error {
	e.transition(StateShuttingDown)
	seq := NewShutdownSequence(e.lg, e.deps.Pub, e.deps.Meta, e.deps.Console)
	err := seq.Run(ctx)
	if e.deps.Ledger != nil {
		ev := LedgerEvent{Reason: "shutdown: " + reason, Terminating: true, Timestamp: time.Now().UnixMilli()}
		if lerr := e.deps.Ledger.Record(ctx, ev); lerr != nil {
			e.lg.Error("ledger write", "reason", ev.Reason, "error", lerr)
		} else {
			e.stats.IncLedgerWrites()
		}
	}
	return err
}
