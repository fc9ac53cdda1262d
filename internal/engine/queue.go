package engine

import "sync"

// CommandType distinguishes between command kinds.
type CommandType int

const (
	// CommandSelect selects master item Item of the browser.
	CommandSelect CommandType = iota + 1
	// CommandSelectNext moves the selection by Item.
	CommandSelectNext
	// CommandSetPlayback starts or stops playback (Enabled).
	CommandSetPlayback
	// CommandSetRecording starts or stops recording (Enabled).
	CommandSetRecording
	// CommandSnapshot captures one snapshot of the browser's proxies.
	CommandSnapshot
	// CommandTick runs one playback tick outside the ticker.
	CommandTick
	// CommandApply runs Apply on the loop goroutine.
	CommandApply
)

// String returns the command name used in logs and responses.
func (t CommandType) String() string {
	switch t {
	case CommandSelect:
		return "select"
	case CommandSelectNext:
		return "select_next"
	case CommandSetPlayback:
		return "set_playback"
	case CommandSetRecording:
		return "set_recording"
	case CommandSnapshot:
		return "snapshot"
	case CommandTick:
		return "tick"
	case CommandApply:
		return "apply"
	default:
		return "unknown"
	}
}

// Command is a unit of work for the Run loop. BrowserID names the target
// browser by ID or name; it is ignored by CommandTick and CommandApply.
type Command struct {
	Type      CommandType
	BrowserID string
	Item      int
	Enabled   bool
	Apply     func(*Engine) error
}

// commandQueue is a thread-safe FIFO queue for commands.
//
// The queue is unbounded so file watchers and tests can enqueue without
// blocking while the Run loop is busy with a tick.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type commandQueue struct {
	mu       sync.Mutex
	commands []Command
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		commands: make([]Command, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a command to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(c Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.commands = append(q.commands, c)

	// Non-blocking; the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Command{}, false) if queue is empty.
func (q *commandQueue) TryDequeue() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return Command{}, false
	}

	c := q.commands[0]
	// Drop the Apply closure so the backing array does not retain it.
	q.commands[0] = Command{}
	if len(q.commands) == 1 {
		q.commands = q.commands[:0]
	} else {
		q.commands = q.commands[1:]
	}

	return c, true
}

// Wait returns a channel that signals when commands may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}

// Close signals that no more commands will be enqueued and wakes waiters.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close was called.
func (q *commandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
