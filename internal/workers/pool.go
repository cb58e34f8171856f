// Package workers runs blocking upstream calls (brokerage SDK requests)
// on a bounded pool of goroutines so the calling session goroutine can
// wait on a channel instead of blocking inline.
package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/metrics"
)

// Task represents a unit of work to be processed.
type Task interface {
	Execute() error
}

// TaskFunc is a function that can be used as a Task.
type TaskFunc func() error

func (f TaskFunc) Execute() error { return f() }

// Pool manages a pool of worker goroutines.
type Pool struct {
	logger *zap.Logger
	config *PoolConfig

	taskQueue chan Task
	wg        sync.WaitGroup

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	metrics *PoolMetrics
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	Name            string
	NumWorkers      int
	QueueSize       int
	TaskTimeout     time.Duration
	ShutdownTimeout time.Duration
	PanicRecovery   bool
}

// DefaultPoolConfig returns sensible defaults for a broker-call
// dispatch pool: few workers since the brokerage's own rate limiter is
// the real throughput bound, a modest queue, and a generous per-call
// timeout matched to upstream HTTP latency.
func DefaultPoolConfig(name string) *PoolConfig {
	return &PoolConfig{
		Name:            name,
		NumWorkers:      8,
		QueueSize:       1000,
		TaskTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		PanicRecovery:   true,
	}
}

// PoolMetrics tracks pool throughput and failure counts.
type PoolMetrics struct {
	TasksSubmitted int64
	TasksCompleted int64
	TasksFailed    int64
	TasksTimeout   int64
	PanicRecovered int64

	startTime time.Time
}

func newPoolMetrics() *PoolMetrics {
	return &PoolMetrics{startTime: time.Now()}
}

// Stats is a snapshot of PoolMetrics safe to export to Prometheus or logs.
type Stats struct {
	TasksSubmitted int64
	TasksCompleted int64
	TasksFailed    int64
	TasksTimeout   int64
	PanicRecovered int64
	Uptime         time.Duration
}

func (m *PoolMetrics) snapshot() Stats {
	return Stats{
		TasksSubmitted: atomic.LoadInt64(&m.TasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&m.TasksCompleted),
		TasksFailed:    atomic.LoadInt64(&m.TasksFailed),
		TasksTimeout:   atomic.LoadInt64(&m.TasksTimeout),
		PanicRecovered: atomic.LoadInt64(&m.PanicRecovered),
		Uptime:         time.Since(m.startTime),
	}
}

// worker represents a single worker goroutine.
type worker struct {
	id     int
	pool   *Pool
	logger *zap.Logger
}

// NewPool creates a new worker pool.
func NewPool(logger *zap.Logger, config *PoolConfig) *Pool {
	if config == nil {
		config = DefaultPoolConfig("default")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		logger:    logger,
		config:    config,
		taskQueue: make(chan Task, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		metrics:   newPoolMetrics(),
	}
}

// Start initializes and starts all workers.
func (p *Pool) Start() {
	if p.running.Swap(true) {
		return
	}
	p.logger.Info("starting worker pool",
		zap.String("name", p.config.Name),
		zap.Int("workers", p.config.NumWorkers),
		zap.Int("queue_size", p.config.QueueSize),
	)
	for i := 0; i < p.config.NumWorkers; i++ {
		w := &worker{id: i, pool: p, logger: p.logger.With(zap.Int("worker_id", i))}
		p.wg.Add(1)
		go w.run()
	}
}

func (w *worker) run() {
	defer w.pool.wg.Done()
	for {
		select {
		case <-w.pool.ctx.Done():
			return
		case task, ok := <-w.pool.taskQueue:
			if !ok {
				return
			}
			w.executeTask(task)
		}
	}
}

func (w *worker) executeTask(task Task) {
	ctx, cancel := context.WithTimeout(w.pool.ctx, w.pool.config.TaskTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var err error
		if w.pool.config.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddInt64(&w.pool.metrics.PanicRecovered, 1)
					w.logger.Error("worker recovered from panic", zap.Any("panic", r))
					err = &PanicError{Recovered: r}
				}
				done <- err
			}()
		}
		err = task.Execute()
		if !w.pool.config.PanicRecovery {
			done <- err
		}
	}()

	select {
	case err := <-done:
		if err != nil {
			atomic.AddInt64(&w.pool.metrics.TasksFailed, 1)
			w.logger.Debug("task failed", zap.Error(err))
		} else {
			atomic.AddInt64(&w.pool.metrics.TasksCompleted, 1)
		}
	case <-ctx.Done():
		atomic.AddInt64(&w.pool.metrics.TasksTimeout, 1)
		w.logger.Warn("task timed out", zap.Duration("timeout", w.pool.config.TaskTimeout))
	}
}

// SubmitWait submits a task and blocks the caller until it completes,
// is cancelled via ctx, or the pool is stopped. This is how broker
// calls hand a blocking upstream SDK request to a pool goroutine while
// the session goroutine waits without itself performing the I/O.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	if !p.running.Load() {
		return ErrPoolStopped
	}

	done := make(chan error, 1)
	wrapper := TaskFunc(func() error {
		err := task.Execute()
		done <- err
		return err
	})

	select {
	case p.taskQueue <- wrapper:
		atomic.AddInt64(&p.metrics.TasksSubmitted, 1)
		metrics.WorkerPoolQueueLength.WithLabelValues(p.config.Name).Set(float64(len(p.taskQueue)))
	default:
		return ErrQueueFull
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// SubmitFunc submits a function as a task and waits for completion.
func (p *Pool) SubmitFunc(ctx context.Context, fn func() error) error {
	return p.SubmitWait(ctx, TaskFunc(fn))
}

// Stop gracefully shuts down the pool.
func (p *Pool) Stop() error {
	if !p.running.Swap(false) {
		return nil
	}
	p.logger.Info("stopping worker pool", zap.String("name", p.config.Name))
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully", zap.String("name", p.config.Name))
		return nil
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn("worker pool shutdown timed out",
			zap.String("name", p.config.Name),
			zap.Duration("timeout", p.config.ShutdownTimeout),
		)
		return ErrShutdownTimeout
	}
}

// QueueLength returns the current number of queued tasks.
func (p *Pool) QueueLength() int { return len(p.taskQueue) }

// IsRunning returns whether the pool is running.
func (p *Pool) IsRunning() bool { return p.running.Load() }

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() Stats { return p.metrics.snapshot() }

var (
	ErrPoolStopped     = &PoolError{Message: "pool is stopped"}
	ErrQueueFull       = &PoolError{Message: "task queue is full"}
	ErrShutdownTimeout = &PoolError{Message: "shutdown timed out"}
)

// PoolError represents a pool error.
type PoolError struct {
	Message string
}

func (e *PoolError) Error() string { return e.Message }

// PanicError represents a recovered panic.
type PanicError struct {
	Recovered interface{}
}

func (e *PanicError) Error() string { return "panic recovered" }
