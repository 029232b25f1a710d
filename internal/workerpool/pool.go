package workerpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

var (
	ErrRejected        = errors.New("task rejected")
	ErrShutdown        = errors.New("pool is shut down")
	ErrInvalidPoolSize = errors.New("invalid pool size")
	ErrNilTask         = errors.New("nil task")
)

// Task is a unit of work. ctx is cancelled by ShutdownNow.
type Task func(ctx context.Context)

type Options struct {
	CorePoolSize  int
	MaxPoolSize   int
	QueueCapacity int
	// KeepAlive is how long a worker above the core size waits for work
	// before exiting.
	KeepAlive time.Duration
	Policy    RejectionPolicy
}

// Pool is a bounded executor. Workers are started up to the core size, then
// tasks are queued, then extra workers are started up to the max size, and
// only then the rejection policy applies.
type Pool struct {
	logger *slog.Logger
	policy RejectionPolicy

	mu        sync.Mutex
	core      int
	max       int
	keepAlive time.Duration
	workers   int
	largest   int
	shutdown  bool
	stopped   bool
	// wake is closed to make idle workers re-read the pool sizes. It is
	// replaced after every resize and stays closed once the pool shuts down.
	wake chan struct{}

	queue chan Task

	active     atomic.Int64
	completed  atomic.Int64
	rejected   atomic.Int64
	callerRuns atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	wg         conc.WaitGroup
	terminated chan struct{}
	termOnce   sync.Once
}

func New(logger *slog.Logger, opts Options) (*Pool, error) {
	if opts.CorePoolSize < 0 || opts.MaxPoolSize <= 0 || opts.MaxPoolSize < opts.CorePoolSize {
		return nil, errors.Wrapf(ErrInvalidPoolSize, "core %d, max %d", opts.CorePoolSize, opts.MaxPoolSize)
	}
	if opts.QueueCapacity < 0 {
		return nil, errors.Newf("queue capacity must not be negative, got %d", opts.QueueCapacity)
	}
	if opts.KeepAlive < 0 {
		return nil, errors.Newf("keep alive must not be negative, got %s", opts.KeepAlive)
	}
	if opts.Policy == "" {
		opts.Policy = CallerRuns
	}
	if _, err := ParsePolicy(string(opts.Policy)); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		logger:     logger,
		policy:     opts.Policy,
		core:       opts.CorePoolSize,
		max:        opts.MaxPoolSize,
		keepAlive:  opts.KeepAlive,
		wake:       make(chan struct{}),
		queue:      make(chan Task, opts.QueueCapacity),
		ctx:        ctx,
		cancel:     cancel,
		terminated: make(chan struct{}),
	}, nil
}

// Execute schedules task. With a queue capacity of zero a task is queued
// only when an idle worker is ready to take it.
func (p *Pool) Execute(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		p.rejected.Add(1)
		return errors.WithStack(ErrShutdown)
	}

	if p.workers < p.core {
		p.startWorkerLocked(task)
		p.mu.Unlock()
		return nil
	}

	select {
	case p.queue <- task:
		if p.workers == 0 {
			p.startWorkerLocked(nil)
		}
		p.mu.Unlock()
		return nil
	default:
	}

	if p.workers < p.max {
		p.startWorkerLocked(task)
		p.mu.Unlock()
		return nil
	}

	workers, queued := p.workers, len(p.queue)
	p.mu.Unlock()

	return p.reject(task, workers, queued)
}

func (p *Pool) reject(task Task, workers, queued int) error {
	switch p.policy {
	case Abort:
		p.rejected.Add(1)
		return errors.Wrapf(ErrRejected, "pool saturated: %d workers, %d queued", workers, queued)
	case Discard:
		p.rejected.Add(1)
		p.logger.Debug("task discarded", slog.Int("workers", workers), slog.Int("queued", queued))
		return nil
	case DiscardOldest:
		return p.replaceOldest(task)
	default:
		p.callerRuns.Add(1)
		p.logger.Debug("pool saturated, running task in caller",
			slog.Int("workers", workers),
			slog.Int("queued", queued))
		p.runInCaller(task)
		return nil
	}
}

// runInCaller runs a rejected task on the submitting goroutine. It is not a
// pool task, so it counts neither as active nor as completed.
func (p *Pool) runInCaller(task Task) {
	var pc panics.Catcher
	pc.Try(func() {
		task(p.ctx)
	})

	if recovered := pc.Recovered(); recovered != nil {
		p.logger.Error("caller task panicked",
			slog.Any("panic", recovered.Value),
			slog.String("stack", string(recovered.Stack)))
	}
}

func (p *Pool) replaceOldest(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		p.rejected.Add(1)
		return errors.WithStack(ErrShutdown)
	}

	select {
	case <-p.queue:
		p.rejected.Add(1)
	default:
	}

	select {
	case p.queue <- task:
	default:
		// Nothing was queued to make room for, e.g. a zero capacity queue.
		p.rejected.Add(1)
	}
	return nil
}

func (p *Pool) startWorkerLocked(first Task) {
	p.workers++
	if p.workers > p.largest {
		p.largest = p.workers
	}
	p.wg.Go(func() {
		p.work(first)
	})
}

func (p *Pool) work(task Task) {
	for {
		if task != nil {
			p.runTask(task)
		}

		var ok bool
		if task, ok = p.next(); !ok {
			return
		}
	}
}

// next waits for the next task. When it reports false the worker has been
// removed from the pool and must return.
func (p *Pool) next() (Task, bool) {
	timedOut := false

	for {
		p.mu.Lock()
		if p.stopped || (p.shutdown && len(p.queue) == 0) {
			p.exitLocked()
			p.mu.Unlock()
			return nil, false
		}
		if (p.workers > p.max || (timedOut && p.workers > p.core)) && (p.workers > 1 || len(p.queue) == 0) {
			p.exitLocked()
			p.mu.Unlock()
			return nil, false
		}
		timed := p.workers > p.core
		wake, keepAlive := p.wake, p.keepAlive
		p.mu.Unlock()

		if !timed {
			select {
			case task := <-p.queue:
				return task, true
			case <-wake:
			}
			continue
		}

		timer := time.NewTimer(keepAlive)
		select {
		case task := <-p.queue:
			timer.Stop()
			return task, true
		case <-wake:
			timer.Stop()
		case <-timer.C:
			timedOut = true
		}
	}
}

func (p *Pool) exitLocked() {
	p.workers--
}

func (p *Pool) runTask(task Task) {
	p.active.Add(1)

	var pc panics.Catcher
	pc.Try(func() {
		task(p.ctx)
	})

	p.completed.Add(1)
	p.active.Add(-1)

	if recovered := pc.Recovered(); recovered != nil {
		p.logger.Error("task panicked",
			slog.Any("panic", recovered.Value),
			slog.String("stack", string(recovered.Stack)))
	}
}

// signalLocked wakes idle workers so they re-read the pool sizes.
func (p *Pool) signalLocked() {
	if p.shutdown {
		return
	}
	close(p.wake)
	p.wake = make(chan struct{})
}

// SetCorePoolSize changes the core size. Growing starts workers for work
// already queued; shrinking lets extra workers exit once idle past the
// keep-alive.
func (p *Pool) SetCorePoolSize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n < 0 || n > p.max {
		return errors.Wrapf(ErrInvalidPoolSize, "core %d, max %d", n, p.max)
	}

	delta := n - p.core
	p.core = n

	if p.workers > n {
		p.signalLocked()
		return nil
	}

	if delta > 0 && !p.shutdown {
		for k := min(delta, len(p.queue)); k > 0 && p.workers < n; k-- {
			p.startWorkerLocked(nil)
		}
	}
	return nil
}

// SetMaxPoolSize changes the max size. It fails when n is below the core
// size. Workers above the new max exit after their current task.
func (p *Pool) SetMaxPoolSize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n <= 0 || n < p.core {
		return errors.Wrapf(ErrInvalidPoolSize, "max %d, core %d", n, p.core)
	}

	p.max = n
	if p.workers > n {
		p.signalLocked()
	}
	return nil
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	poolSize, largest, core, maxSize := p.workers, p.largest, p.core, p.max
	p.mu.Unlock()

	active := p.active.Load()
	completed := p.completed.Load()
	queued := len(p.queue)

	return Stats{
		PoolSize:        poolSize,
		ActiveCount:     active,
		CompletedTasks:  completed,
		QueueSize:       queued,
		InFlight:        active + int64(queued),
		LargestPoolSize: largest,
		TaskCount:       completed + active + int64(queued),
		CorePoolSize:    core,
		MaxPoolSize:     maxSize,
		Rejected:        p.rejected.Load(),
		CallerRuns:      p.callerRuns.Load(),
	}
}

// Shutdown stops accepting tasks. Queued tasks still run.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdownLocked()
	p.mu.Unlock()
}

// ShutdownNow stops accepting tasks, cancels the context of running tasks and
// returns the tasks that never started.
func (p *Pool) ShutdownNow() []Task {
	p.mu.Lock()
	p.stopped = true
	p.shutdownLocked()

	var pending []Task
drain:
	for {
		select {
		case task := <-p.queue:
			pending = append(pending, task)
		default:
			break drain
		}
	}
	p.mu.Unlock()

	p.cancel()
	return pending
}

func (p *Pool) shutdownLocked() {
	if p.shutdown {
		return
	}
	p.shutdown = true
	close(p.wake)

	p.termOnce.Do(func() {
		go func() {
			p.wg.Wait()
			p.cancel()
			close(p.terminated)
		}()
	})
}

// AwaitTermination blocks until every worker has exited after a shutdown, or
// ctx is done.
func (p *Pool) AwaitTermination(ctx context.Context) error {
	select {
	case <-p.terminated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

func (p *Pool) IsTerminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}
