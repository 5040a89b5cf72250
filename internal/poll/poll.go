package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
)

// Func is invoked once per tick. Returning done=true stops the task; an
// error is logged and the task keeps ticking until done, cancellation, or
// the attempt budget runs out.
type Func func(c context.Context) (done bool, err error)

type task struct {
	cancel context.CancelFunc
}

// Poller runs at most one interval task per key. Starting a task for a key
// that already has one cancels the previous task first, so rapid re-entry
// into a screen can never leave two pollers racing for the same order.
type Poller struct {
	mu          sync.Mutex
	tasks       map[string]*task
	wg          sync.WaitGroup
	interval    time.Duration
	maxAttempts int
}

func New(interval time.Duration, maxAttempts int) *Poller {
	return &Poller{
		tasks:       map[string]*task{},
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

func (p *Poller) Start(c context.Context, key string, fn Func) {
	p.mu.Lock()
	if prev, ok := p.tasks[key]; ok {
		prev.cancel()
	}
	c, cancel := context.WithCancel(c)
	tk := &task{cancel: cancel}
	p.tasks[key] = tk
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(c, key, tk, fn)
}

func (p *Poller) Stop(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tk, ok := p.tasks[key]; ok {
		tk.cancel()
		delete(p.tasks, key)
	}
}

func (p *Poller) StopAll() {
	p.mu.Lock()
	for key, tk := range p.tasks {
		tk.cancel()
		delete(p.tasks, key)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) Active(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tasks[key]
	return ok
}

// remove detaches tk from the registry unless the key was already replaced
// by a newer task.
func (p *Poller) remove(key string, tk *task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.tasks[key]; ok && cur == tk {
		delete(p.tasks, key)
	}
}

func (p *Poller) run(c context.Context, key string, tk *task, fn Func) {
	defer p.wg.Done()
	defer tk.cancel()
	defer p.remove(key, tk)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Poller run").
		Str(log.KeyPollKey, key).
		Logger()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; p.maxAttempts <= 0 || attempt <= p.maxAttempts; attempt++ {
		select {
		case <-c.Done():
			logger.Info().Msg("poll task canceled")
			return
		case <-ticker.C:
			done, err := fn(c)
			if err != nil {
				logger.Error().
					Err(err).
					Int(log.KeyAttempt, attempt).
					Msgf("poll attempt failed with error=%s", err.Error())
			}
			if done {
				logger.Info().Int(log.KeyAttempt, attempt).Msg("poll task finished")
				return
			}
		}
	}
	logger.Info().Msg("poll task exhausted attempt budget")
}
