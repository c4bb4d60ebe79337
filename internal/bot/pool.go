package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// Pool runs a fixed set of workers. Events are sharded by chat ID, so one
// chat's events are handled in arrival order by a single worker while
// different chats proceed in parallel.
type Pool struct {
	handler Handler
	logger  zerolog.Logger
	timeout time.Duration
	shards  []chan Event

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(workers int, handler Handler, timeout time.Duration, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		handler: handler,
		logger:  logger.With().Str("component", "pool").Logger(),
		timeout: timeout,
		shards:  make([]chan Event, workers),
	}
	for i := range p.shards {
		p.shards[i] = make(chan Event, 64)
	}
	return p
}

// Start launches the workers. Handlers run with a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	for i, ch := range p.shards {
		p.wg.Add(1)
		go p.work(ctx, i, ch)
	}
}

// Submit queues an event, blocking while the chat's shard is full.
func (p *Pool) Submit(ctx context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	shard := p.shards[xxhash.Sum64String(ev.ChatID)%uint64(len(p.shards))]
	select {
	case shard <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new events, drains queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, ch := range p.shards {
		close(ch)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work(ctx context.Context, id int, events <-chan Event) {
	defer p.wg.Done()
	for ev := range events {
		p.handle(ctx, id, ev)
	}
}

func (p *Pool) handle(ctx context.Context, id int, ev Event) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Int("worker", id).Str("chat_id", ev.ChatID).Msg("handler panicked")
		}
	}()
	if err := p.handler.Handle(ctx, ev); err != nil {
		p.logger.Error().Err(err).
			Int("worker", id).
			Str("chat_id", ev.ChatID).
			Str("kind", ev.Kind.String()).
			Msg("handle event")
	}
}
