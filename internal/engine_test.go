// v1
// engine_test.go
package internal

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	cmds []Twist
	err  error
}

func (f *fakePublisher) PublishTwist(_ context.Context, t Twist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, t)
	return nil
}

func (f *fakePublisher) published() []Twist {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Twist, len(f.cmds))
	copy(out, f.cmds)
	return out
}

type fakeLedger struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (f *fakeLedger) Record(_ context.Context, ev LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeLedger) recorded() []LedgerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LedgerEvent, len(f.events))
	copy(out, f.events)
	return out
}

type testRig struct {
	eng    *Engine
	state  *VehicleState
	h      *Handlers
	pub    *fakePublisher
	ledger *fakeLedger
	stats  *EngineStats
	meta   *ModelMetadata
}

// newTestRig builds an engine over fakes, with the model metadata in a
// temp dir and the console scripted with the given operator input.
func newTestRig(t *testing.T, consoleInput string) *testRig {
	t.Helper()
	dir, name := writeTestMetadata(t, testMetadataYAML)
	meta, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	cfg := &AppConfig{TickRateHz: 30, Policy: testPolicyConfig()}
	state := NewVehicleState()
	stats := NewEngineStats()
	pub := &fakePublisher{}
	ledger := &fakeLedger{}
	eng := NewEngine(cfg, testLogger(), EngineDeps{
		Pub:     pub,
		State:   state,
		Meta:    meta,
		Ledger:  ledger,
		Stats:   stats,
		Console: NewConsole(strings.NewReader(consoleInput), io.Discard),
	})
	return &testRig{
		eng:    eng,
		state:  state,
		h:      NewHandlers(state),
		pub:    pub,
		ledger: ledger,
		stats:  stats,
		meta:   meta,
	}
}

func TestIdleUntilFirstFrame(t *testing.T) {
	rig := newTestRig(t, "")
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		done, err := rig.eng.step(ctx, now.Add(time.Duration(i)*33*time.Millisecond))
		require.NoError(t, err)
		require.False(t, done)
	}

	assert.Empty(t, rig.pub.published(), "no actuation before the first frame")
	view := rig.stats.View()
	assert.Equal(t, StateIdle, view.State)
	assert.EqualValues(t, 5, view.Stats.IdleSkips)
}

func TestPassThroughPublishesModelValues(t *testing.T) {
	rig := newTestRig(t, "")
	ctx := context.Background()
	require.NoError(t, rig.h.HandleFrame([]byte{0xFF, 0xD8}))
	require.NoError(t, rig.h.HandleModelCommand([]byte(`{"steering": 0.12, "velocity": 0.45}`)))

	done, err := rig.eng.step(ctx, time.Now())
	require.NoError(t, err)
	require.False(t, done)

	cmds := rig.pub.published()
	require.Len(t, cmds, 1)
	assert.Equal(t, NewTwist(0.45, 0.12), cmds[0])
	assert.Equal(t, StateActive, rig.stats.View().State)
}

func TestCruiseResumeThenPassThrough(t *testing.T) {
	rig := newTestRig(t, "")
	ctx := context.Background()
	require.NoError(t, rig.h.HandleFrame([]byte{0xFF, 0xD8}))
	require.NoError(t, rig.h.HandleModelCommand([]byte(`{"steering": -0.05, "velocity": 0.3}`)))
	require.NoError(t, rig.h.HandleSignal([]byte(SignalForward)))

	now := time.Now()
	_, err := rig.eng.step(ctx, now)
	require.NoError(t, err)

	cmds := rig.pub.published()
	require.Len(t, cmds, 1)
	assert.Equal(t, 0.8, cmds[0].Linear.X, "resume publishes the cruise velocity")
	assert.Equal(t, -0.05, cmds[0].Angular.Z)

	// Next tick: already cruising, rule 1 no longer fires and the
	// model-reported pair passes through.
	_, err = rig.eng.step(ctx, now.Add(33*time.Millisecond))
	require.NoError(t, err)
	cmds = rig.pub.published()
	require.Len(t, cmds, 2)
	assert.Equal(t, 0.3, cmds[1].Linear.X)

	events := rig.ledger.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "resume cruise", events[0].Reason)
}

func TestCrosswalkStopHoldsThenPublishesZero(t *testing.T) {
	rig := newTestRig(t, "")
	ctx := context.Background()
	require.NoError(t, rig.h.HandleFrame([]byte{0xFF, 0xD8}))
	require.NoError(t, rig.h.HandleModelCommand([]byte(`{"steering": 0.2, "velocity": 0.8}`)))
	require.NoError(t, rig.h.HandleCrosswalk([]byte("0.90")))
	require.NoError(t, rig.h.HandleSignal([]byte(SignalStop)))

	now := time.Now()
	done, err := rig.eng.step(ctx, now)
	require.NoError(t, err)
	require.False(t, done)
	assert.Empty(t, rig.pub.published(), "no command while the hold window runs")
	assert.Equal(t, StateHolding, rig.stats.View().State)

	// Mid-window ticks publish nothing.
	_, err = rig.eng.step(ctx, now.Add(400*time.Millisecond))
	require.NoError(t, err)
	assert.Empty(t, rig.pub.published())

	// Window elapsed: velocity goes to zero, steering passes through.
	_, err = rig.eng.step(ctx, now.Add(851*time.Millisecond))
	require.NoError(t, err)
	cmds := rig.pub.published()
	require.Len(t, cmds, 1)
	assert.Equal(t, NewTwist(0, 0.2), cmds[0])
	assert.Equal(t, StateActive, rig.stats.View().State)
	assert.EqualValues(t, 1, rig.stats.View().Stats.Holds)
}

func TestChessboardStopsAndTerminates(t *testing.T) {
	rig := newTestRig(t, "clean run\n9\n")
	ctx := context.Background()
	require.NoError(t, rig.h.HandleFrame([]byte{0xFF, 0xD8}))
	require.NoError(t, rig.h.HandleModelCommand([]byte(`{"steering": 0.2, "velocity": 0.6}`)))
	require.NoError(t, rig.h.HandleCrosswalk([]byte("0.95")))
	require.NoError(t, rig.h.HandleSignal([]byte(SignalChess)))

	now := time.Now()
	done, err := rig.eng.step(ctx, now)
	require.NoError(t, err)
	require.False(t, done)
	assert.Empty(t, rig.pub.published())

	done, err = rig.eng.step(ctx, now.Add(200*time.Millisecond))
	require.NoError(t, err)
	require.True(t, done, "loop must not tick again after termination")

	cmds := rig.pub.published()
	require.Len(t, cmds, 1, "exactly one graceful stop")
	assert.Equal(t, NewTwist(0, 0), cmds[0])
	assert.Equal(t, StateShuttingDown, rig.stats.View().State)

	assert.Equal(t, "clean run", rig.meta.Model["driving_comments"])
	assert.Equal(t, "9/10", rig.meta.Model["driving_model_eval"])
}

func TestOperatorAbortRunsShutdown(t *testing.T) {
	rig := newTestRig(t, AbortKey+"\nfelt jerky\n4\n")
	ctx := context.Background()
	require.NoError(t, rig.h.HandleFrame([]byte{0xFF, 0xD8}))
	require.NoError(t, rig.h.HandleModelCommand([]byte(`{"steering": 0, "velocity": 0.5}`)))

	// The console pump delivers asynchronously; keep ticking until the
	// abort is observed.
	var done bool
	var err error
	now := time.Now()
	for i := 0; i < 200 && !done; i++ {
		done, err = rig.eng.step(ctx, now.Add(time.Duration(i)*33*time.Millisecond))
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	require.True(t, done, "abort key must stop the loop")

	cmds := rig.pub.published()
	require.NotEmpty(t, cmds)
	assert.Equal(t, NewTwist(0, 0), cmds[len(cmds)-1], "last command is the graceful stop")
	assert.Equal(t, "felt jerky", rig.meta.Model["driving_comments"])
	assert.Equal(t, "4/10", rig.meta.Model["driving_model_eval"])

	events := rig.ledger.recorded()
	require.NotEmpty(t, events)
	assert.Equal(t, "shutdown: operator abort", events[len(events)-1].Reason)
}

func TestShutdownPersistsMetadataToDisk(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)
	meta, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)
	pub := &fakePublisher{}
	console := NewConsole(strings.NewReader("good model; needs tuning\n7\n"), io.Discard)

	seq := NewShutdownSequence(testLogger(), pub, meta, console)
	require.NoError(t, seq.Run(context.Background()))

	raw, err := os.ReadFile(filepath.Join(dir, "models", name, name+".yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "good model; needs tuning")
	assert.Contains(t, string(raw), "7/10")
}

func TestShutdownPersistenceFailureIsReported(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)
	meta, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "models")))
	pub := &fakePublisher{}
	console := NewConsole(strings.NewReader("\n\n"), io.Discard)

	seq := NewShutdownSequence(testLogger(), pub, meta, console)
	err = seq.Run(context.Background())

	require.Error(t, err, "lost feedback must surface as a non-zero exit")
	require.Len(t, pub.published(), 1, "the stop command still went out first")
}

func TestPublishFailurePropagates(t *testing.T) {
	rig := newTestRig(t, "")
	rig.pub.err = errTransport
	require.NoError(t, rig.h.HandleFrame([]byte{0xFF, 0xD8}))

	_, err := rig.eng.step(context.Background(), time.Now())

	require.ErrorIs(t, err, errTransport)
}

var errTransport = errors.New("broker unavailable")
