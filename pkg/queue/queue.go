// Package queue runs background jobs (order emails) with bounded retries.
//
//	q := queue.New(queue.NewMemoryDriver(), queue.Options{})
//	q.Register("send_mail", func() queue.Job { return &jobs.SendMailJob{Mailer: m} })
//	q.Start(ctx, 2)
//	_ = q.Dispatch(ctx, &jobs.SendMailJob{Message: msg})
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// Job is the interface every queued job must satisfy. Exported fields are
// the payload and travel as JSON.
type Job interface {
	// Type names the job in the registry.
	Type() string
	// Handle executes the job. Return a non-nil error to retry.
	Handle(ctx context.Context) error
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is available. (nil, nil) means "nothing
	// yet, poll again".
	Pop(ctx context.Context) ([]byte, error)
}

// Options tunes retries. Zero values pick the defaults.
type Options struct {
	MaxAttempts int           // default 3
	Backoff     time.Duration // first retry delay, doubled per attempt; default 1s
	Failed      FailedStore   // where exhausted jobs go; default in-memory
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ------------------- Manager -------------------

// Manager dispatches jobs to a driver and runs workers that process them.
type Manager struct {
	driver   Driver
	opts     Options
	mu       sync.RWMutex
	registry map[string]func() Job
	wg       sync.WaitGroup
}

func New(d Driver, opts Options) *Manager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Failed == nil {
		opts.Failed = NewMemoryFailedStore()
	}
	return &Manager{driver: d, opts: opts, registry: map[string]func() Job{}}
}

// Register makes a job type available for decoding. The factory is the
// place to inject dependencies the payload does not carry.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// Dispatch pushes job onto the queue.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", job.Type(), err)
	}

	env, err := json.Marshal(envelope{Type: job.Type(), Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	if err := m.driver.Push(ctx, env); err != nil {
		return fmt.Errorf("queue: dispatch %s: %w", job.Type(), err)
	}
	return nil
}

// ------------------- Worker -------------------

// Start launches n workers that run until ctx is cancelled. Wait blocks
// until they have returned.
func (m *Manager) Start(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
}

// Wait blocks until every worker started by Start has returned.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		m.fail(ctx, env, errors.New("unregistered job type"), 0)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		m.fail(ctx, env, err, 0)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	var lastErr error
	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		start := time.Now()
		lastErr = job.Handle(ctx)
		if lastErr == nil {
			metrics.RecordQueueJob(env.Type, "success", start)
			logger.Debug("queue: job processed", "type", env.Type)
			return
		}

		metrics.RecordQueueJob(env.Type, "retry", start)
		logger.Warn("queue: job failed", "type", env.Type, "attempt", attempt, "error", lastErr)
		if attempt < m.opts.MaxAttempts && !sleep(ctx, m.opts.Backoff<<(attempt-1)) {
			break
		}
	}

	metrics.QueueJobsProcessed.WithLabelValues(env.Type, "failed").Inc()
	logger.Error("queue: job exhausted retries", "type", env.Type, "error", lastErr)
	m.fail(ctx, env, lastErr, m.opts.MaxAttempts)
}

func (m *Manager) fail(ctx context.Context, env envelope, err error, attempts int) {
	rec := FailedJobRecord{
		JobType:  env.Type,
		Payload:  string(env.Payload),
		Error:    err.Error(),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	// The worker ctx may already be cancelled at shutdown.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.opts.Failed.Save(saveCtx, rec); err != nil {
		logger.Error("queue: persist failed job", "type", env.Type, "error", err)
	}
}

// sleep waits for d or until ctx is done. Returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
