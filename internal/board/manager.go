package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/bodysim/internal/body"
)

// ErrStopped is returned by Submit after the loop has exited.
var ErrStopped = errors.New("board stopped")

// Manager drives the bodies of one board. Start runs the loop; every
// body mutation must happen on it, either in Tick or through Submit.
type Manager struct {
	name     string
	interval time.Duration

	bodies    sync.Map // map[string]*body.Body — creature id → body
	bodyCount atomic.Int32
	ticks     atomic.Uint64

	tasks    chan func()
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a board ticking ticksPerSecond times per second.
func NewManager(name string, ticksPerSecond float64) *Manager {
	if ticksPerSecond <= 0 {
		ticksPerSecond = body.DefaultTicksPerSecond
	}
	return &Manager{
		name:     name,
		interval: time.Duration(float64(time.Second) / ticksPerSecond),
		tasks:    make(chan func(), 64),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Name returns the board name.
func (m *Manager) Name() string { return m.name }

// Interval returns the tick period.
func (m *Manager) Interval() time.Duration { return m.interval }

// Register adds b under id, replacing a previous body with the same id.
func (m *Manager) Register(id string, b *body.Body) {
	if _, loaded := m.bodies.Swap(id, b); !loaded {
		m.bodyCount.Add(1)
	}
	slog.Debug("body registered", "board", m.name, "id", id)
}

// Unregister removes the body registered under id.
func (m *Manager) Unregister(id string) bool {
	if _, ok := m.bodies.LoadAndDelete(id); !ok {
		return false
	}
	m.bodyCount.Add(-1)
	slog.Debug("body unregistered", "board", m.name, "id", id)
	return true
}

// Count returns number of registered bodies (O(1) cached count).
func (m *Manager) Count() int {
	return int(m.bodyCount.Load())
}

// Body returns the body registered under id.
func (m *Manager) Body(id string) (*body.Body, error) {
	v, ok := m.bodies.Load(id)
	if !ok {
		return nil, fmt.Errorf("body %q not found on board %s", id, m.name)
	}
	return v.(*body.Body), nil
}

// Range calls fn for every registered body until fn returns false.
// Call it from the loop goroutine only.
func (m *Manager) Range(fn func(id string, b *body.Body) bool) {
	m.bodies.Range(func(k, v any) bool {
		return fn(k.(string), v.(*body.Body))
	})
}

// Ticks returns how many ticks have run.
func (m *Manager) Ticks() uint64 { return m.ticks.Load() }

// TickAll advances every body by one step and returns how many were ticked.
func (m *Manager) TickAll() int {
	count := 0
	m.bodies.Range(func(_, v any) bool {
		v.(*body.Body).Tick()
		count++
		return true
	})
	m.ticks.Add(1)
	return count
}

// Submit runs fn on the loop goroutine. It blocks until fn is queued,
// not until it has run.
func (m *Manager) Submit(ctx context.Context, fn func()) error {
	select {
	case <-m.doneCh:
		return ErrStopped
	default:
	}
	select {
	case m.tasks <- fn:
		return nil
	case <-m.doneCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the loop goroutine and waits until it has run. It returns
// ErrStopped when the loop exits with fn still queued.
func (m *Manager) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if err := m.Submit(ctx, func() {
		fn()
		close(ran)
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-m.doneCh:
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop has exited.
func (m *Manager) Done() <-chan struct{} { return m.doneCh }

// Start runs the tick loop (blocks until ctx is canceled or Stop is called).
func (m *Manager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.doneCh)

	slog.Info("board started", "board", m.name, "interval", m.interval, "bodies", m.Count())

	for {
		select {
		case <-ctx.Done():
			slog.Info("board stopping", "board", m.name, "ticks", m.Ticks())
			return ctx.Err()

		case <-m.stopCh:
			slog.Info("board stopped", "board", m.name, "ticks", m.Ticks())
			return nil

		case fn := <-m.tasks:
			fn()

		case <-ticker.C:
			if n := m.TickAll(); n > 0 {
				slog.Debug("board tick completed", "board", m.name, "bodies", n)
			}
		}
	}
}

// Stop stops the tick loop. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
