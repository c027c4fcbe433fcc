// Package worker runs fire-and-forget background jobs (memory extraction,
// note vectorization, event publishing) off the request path.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/hearth/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 2 * time.Minute
)

// Job is a unit of work for the worker pool to execute.
type Job struct {
	// Name identifies the job kind in logs, e.g. "memory_extraction".
	Name string

	// HouseholdID is carried for log correlation only.
	HouseholdID string

	// Run does the work. Its error is logged and otherwise dropped.
	Run func(ctx context.Context) error
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single job's context (defaults to 2 minutes).
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes jobs asynchronously via a fixed set of goroutines.
type Pool struct {
	queue   chan Job
	timeout time.Duration
	wg      sync.WaitGroup
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	p := &Pool{
		queue:   make(chan Job, c.QueueSize),
		timeout: c.JobTimeout,
		logger:  c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job without blocking. It returns false, dropping the job,
// when the queue is full or the pool is closed.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "job", job.Name)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "job", job.Name, "household_id", job.HouseholdID)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"job", job.Name,
			"household_id", job.HouseholdID,
		)
		return false
	}
}

// Close stops accepting jobs and waits for queued and in-flight jobs to drain.
// Call it during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.run(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// run executes one job, containing panics so a bad job cannot kill a worker.
func (p *Pool) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "job", job.Name, "household_id", job.HouseholdID, "panic", r)
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		p.logger.Warn("job failed",
			"job", job.Name,
			"household_id", job.HouseholdID,
			logger.Err(err),
		)
		return
	}

	p.logger.Debug("job done",
		"job", job.Name,
		"household_id", job.HouseholdID,
		"duration", time.Since(start),
	)
}
