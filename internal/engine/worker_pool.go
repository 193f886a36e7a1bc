package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/snoozeweb/snooze-syslog/internal/queue"
)

// State is a worker's lifecycle stage. Once started, a worker only moves
// forward: RUNNING -> STOPPING -> STOPPED. StateIdle is not part of that
// lifecycle; it marks a worker whose pool has not been started yet.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Pool is a fixed-size set of workers draining one queue. Closing the queue
// is the stop signal: each worker finishes what is left and exits.
type Pool[T any] struct {
	name    string
	in      *queue.Queue[T]
	process func(ctx context.Context, t T)
	log     *slog.Logger

	states  []atomic.Int32
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started atomic.Bool
}

// NewPool creates a pool of n workers calling fn for every item popped from in.
func NewPool[T any](name string, n int, in *queue.Queue[T], fn func(context.Context, T), logger *slog.Logger) *Pool[T] {
	if n < 1 {
		n = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool[T]{
		name:    name,
		in:      in,
		process: fn,
		log:     logger.With("pool", name),
		states:  make([]atomic.Int32, n),
	}
}

// Start launches the workers. A pool starts at most once.
func (p *Pool[T]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	for i := range p.states {
		p.states[i].Store(int32(StateRunning))
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	p.log.Debug("workers started", "workers", p.Size())
}

func (p *Pool[T]) run(ctx context.Context, id int) {
	state := &p.states[id]
	defer state.Store(int32(StateStopped))
	for ctx.Err() == nil {
		v, ok := p.in.Pop(ctx)
		if !ok {
			break
		}
		p.safeProcess(ctx, id, v)
	}
	state.Store(int32(StateStopping))
}

func (p *Pool[T]) safeProcess(ctx context.Context, id int, v T) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker recovered from panic", "worker", id, "panic", r)
		}
	}()
	p.process(ctx, v)
}

// Stop closes the input queue and waits for the workers to drain it. If ctx
// expires first the workers are cancelled and ctx's error is returned.
func (p *Pool[T]) Stop(ctx context.Context) error {
	p.in.Close()
	if !p.started.Load() {
		for i := range p.states {
			p.states[i].Store(int32(StateStopped))
		}
		return nil
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		p.log.Warn("workers did not drain in time, cancelling")
		return fmt.Errorf("stop %s pool: %w", p.name, ctx.Err())
	}
}

// States reports every worker's state.
func (p *Pool[T]) States() []State {
	out := make([]State, len(p.states))
	for i := range p.states {
		out[i] = State(p.states[i].Load())
	}
	return out
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int {
	return len(p.states)
}
