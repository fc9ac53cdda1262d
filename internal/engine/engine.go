package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/scene"
	"github.com/slicer/sequences/internal/sequence"
)

// DefaultTickInterval is how often Run advances playback. Browsers compute
// their increment from elapsed wall time, so the interval only bounds the
// latency of a step, not the playback rate.
const DefaultTickInterval = 20 * time.Millisecond

// SyncState is the engine-wide synchronization guard.
type SyncState int

const (
	// StateIdle means no pull or push is running.
	StateIdle SyncState = iota
	// StatePulling means sequences are being copied into proxies.
	StatePulling
	// StatePushing means proxies are being copied into sequences.
	StatePushing
)

// String returns the state name used in logs.
func (s SyncState) String() string {
	switch s {
	case StatePulling:
		return "pulling"
	case StatePushing:
		return "pushing"
	default:
		return "idle"
	}
}

// Trace event types.
const (
	TracePull     = "pull"
	TracePush     = "push"
	TraceSnapshot = "snapshot"
)

// TraceEvent records one synchronization pass. Seq comes from the logical
// Clock, so traces compare equal across runs.
type TraceEvent struct {
	Seq        int64  `json:"seq" yaml:"seq"`
	Type       string `json:"type" yaml:"type"`
	Browser    string `json:"browser" yaml:"browser"`
	Selected   int    `json:"selected" yaml:"selected"`
	IndexValue string `json:"index_value" yaml:"index_value"`
}

// Engine owns a workspace of sequences and browsers and keeps their proxies
// synchronized.
//
// All mutation happens on one goroutine: either the caller's, when the
// engine is driven directly (tests, CLI one-shots), or the Run loop's, when
// other goroutines feed it through Enqueue. Engine is not safe for
// concurrent use outside Enqueue.
type Engine struct {
	clock        *Clock
	wall         WallClock
	ids          scene.IDGenerator
	factory      node.Factory
	tickInterval time.Duration
	trace        func(TraceEvent)

	scene     *scene.Scene
	sequences []*sequence.Sequence
	browsers  []*browser.Browser
	listeners map[*browser.Browser]int

	state    SyncState
	lastTick map[string]time.Time

	queue *commandQueue
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock playback and recording measure against.
// Default: SystemClock.
func WithClock(c WallClock) Option {
	return func(e *Engine) {
		e.wall = c
	}
}

// WithLogicalClock sets the clock that stamps trace events.
func WithLogicalClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the identity source for nodes, sequences, items and
// browsers. Default: scene.UUIDv7Generator.
func WithIDGenerator(g scene.IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithFactory sets the node factory. Default: node.DefaultFactory.
func WithFactory(f node.Factory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithTickInterval sets how often Run calls Tick. Zero disables the ticker.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tickInterval = d
	}
}

// WithTrace registers fn to receive a TraceEvent for every pull, push and
// snapshot that changed something.
func WithTrace(fn func(TraceEvent)) Option {
	return func(e *Engine) {
		e.trace = fn
	}
}

// New creates an engine with an empty workspace.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:        NewClock(),
		wall:         SystemClock{},
		ids:          scene.UUIDv7Generator{},
		factory:      node.DefaultFactory(),
		tickInterval: DefaultTickInterval,
		listeners:    make(map[*browser.Browser]int),
		lastTick:     make(map[string]time.Time),
		queue:        newCommandQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scene = scene.New(scene.WithIDGenerator(e.ids), scene.WithFactory(e.factory))
	return e
}

// Scene returns the main scene holding the proxies.
func (e *Engine) Scene() *scene.Scene { return e.scene }

// Clock returns the logical clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Now reads the wall clock.
func (e *Engine) Now() time.Time { return e.wall.Now() }

// State returns the synchronization guard state.
func (e *Engine) State() SyncState { return e.state }

// enter moves the guard from idle to s. Returns false, leaving the state
// alone, when a pass is already running.
func (e *Engine) enter(s SyncState) bool {
	if e.state != StateIdle {
		return false
	}
	e.state = s
	return true
}

func (e *Engine) leave() {
	e.state = StateIdle
}

func (e *Engine) emit(typ string, b *browser.Browser) {
	if e.trace == nil {
		return
	}
	value, _ := b.CurrentIndexValue()
	e.emitAt(typ, b, value)
}

func (e *Engine) emitAt(typ string, b *browser.Browser, value string) {
	if e.trace == nil {
		return
	}
	e.trace(TraceEvent{
		Seq:        e.clock.Next(),
		Type:       typ,
		Browser:    b.Name(),
		Selected:   b.SelectedItemNumber(),
		IndexValue: value,
	})
}

// Enqueue submits a command to the Run loop.
// Thread-safe: may be called from any goroutine.
// Returns false after Stop.
func (e *Engine) Enqueue(c Command) bool {
	return e.queue.Enqueue(c)
}

// Run processes commands and playback ticks until ctx is cancelled or Stop
// is called. Commands queued before Stop are still processed.
//
// Returns ctx.Err() on cancellation, nil after Stop.
func (e *Engine) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if e.tickInterval > 0 {
		ticker := time.NewTicker(e.tickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.Info("engine started", "tick_interval", e.tickInterval, "browsers", len(e.browsers))
	for {
		if cmd, ok := e.queue.TryDequeue(); ok {
			if err := e.process(cmd); err != nil {
				slog.Warn("command failed", "command", cmd.Type.String(), "browser", cmd.BrowserID, "error", err)
			}
			continue
		}
		if e.queue.Closed() {
			slog.Info("engine stopped")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			e.Tick()
		case <-e.queue.Wait():
		}
	}
}

// Stop closes the command queue. Run returns once the queue is drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Process runs one command synchronously.
func (e *Engine) Process(c Command) error {
	return e.process(c)
}

func (e *Engine) process(c Command) error {
	switch c.Type {
	case CommandTick:
		e.Tick()
		return nil
	case CommandApply:
		if c.Apply == nil {
			return fmt.Errorf("apply command without function")
		}
		return c.Apply(e)
	}

	b := e.Browser(c.BrowserID)
	if b == nil {
		return NewInvalidBrowserError(c.BrowserID)
	}
	switch c.Type {
	case CommandSelect:
		if !b.SetSelectedItemNumber(c.Item) {
			return &SyncError{
				Code:      ErrCodeInvalidIndexValue,
				Message:   fmt.Sprintf("item %d out of range [-1, %d]", c.Item, b.ItemCount()-1),
				BrowserID: b.ID(),
			}
		}
	case CommandSelectNext:
		b.SelectNext(c.Item)
	case CommandSetPlayback:
		b.SetPlaybackActive(c.Enabled)
	case CommandSetRecording:
		b.SetRecordingActive(c.Enabled)
	case CommandSnapshot:
		e.CaptureSnapshot(b)
	default:
		return fmt.Errorf("unknown command type %d", c.Type)
	}
	return nil
}
