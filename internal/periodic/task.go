package periodic

import (
	"context"
	"sync"
	"time"
)

// Func is one unit of periodic work. It receives the task's context, which
// is cancelled when the task stops.
type Func func(ctx context.Context)

// Config describes when a Task fires.
type Config struct {
	// Name identifies the task in logs.
	Name string

	// InitialDelay is the wait before the first run. Zero runs immediately.
	InitialDelay time.Duration

	// Interval is the period between runs after the first. Must be positive.
	Interval time.Duration
}

// Task runs a Func on a fixed schedule in one goroutine it owns.
//
// Runs never overlap: if Fn takes longer than Interval the next tick is
// skipped rather than queued. Stop cancels the schedule and waits for a
// run in progress to return, so no run starts or continues touching
// resources the owner is about to release.
type Task struct {
	cfg Config
	fn  Func

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a task. Call Start to begin the schedule.
func New(cfg Config, fn Func) *Task {
	if cfg.Interval <= 0 {
		panic("periodic: interval must be positive")
	}
	return &Task{
		cfg:  cfg,
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Name returns the configured task name.
func (t *Task) Name() string {
	return t.cfg.Name
}

// Start begins the schedule. The task also stops when ctx is cancelled.
// Calling Start twice, or after Stop, does nothing.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return
	default:
	}
	if t.started {
		return
	}
	t.started = true

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.loop(runCtx)
}

// Stop cancels the schedule and waits for the goroutine to exit.
// Safe to call multiple times and before Start.
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		close(t.done)
		if t.cancel != nil {
			t.cancel()
		}
		t.mu.Unlock()

		t.wg.Wait()
	})
}

func (t *Task) loop(ctx context.Context) {
	defer t.wg.Done()

	if t.cfg.InitialDelay > 0 {
		timer := time.NewTimer(t.cfg.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.done:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	if !t.runOnce(ctx) {
		return
	}

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case <-ticker.C:
			if !t.runOnce(ctx) {
				return
			}
		}
	}
}

// runOnce calls fn unless the task was stopped in the meantime.
func (t *Task) runOnce(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-t.done:
		return false
	default:
	}
	t.fn(ctx)
	return true
}
