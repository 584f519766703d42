package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background delivery work.
type Job func(ctx context.Context) error

// NotificationWorker runs notification deliveries off the request path.
// Submissions never block: when the queue is full the job is dropped and logged.
type NotificationWorker struct {
	jobs    chan namedJob
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type namedJob struct {
	name string
	run  Job
}

// NewNotificationWorker builds a worker with the given queue capacity and per-job timeout.
func NewNotificationWorker(capacity int, timeout time.Duration, logger *zap.Logger) *NotificationWorker {
	if capacity <= 0 {
		capacity = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotificationWorker{
		jobs:    make(chan namedJob, capacity),
		logger:  logger,
		timeout: timeout,
	}
}

// Start launches n consumer goroutines.
func (w *NotificationWorker) Start(n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go w.loop()
	}
}

// Submit enqueues a job and reports whether it was accepted. Jobs submitted
// after Stop are dropped.
func (w *NotificationWorker) Submit(name string, job Job) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("notification worker stopped; dropping job", zap.String("job", name))
		return false
	}
	select {
	case w.jobs <- namedJob{name: name, run: job}:
		return true
	default:
		w.logger.Warn("notification queue full; dropping job", zap.String("job", name))
		return false
	}
}

// Stop closes the queue and waits for queued jobs to finish.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *NotificationWorker) loop() {
	defer w.wg.Done()
	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := job.run(ctx); err != nil {
			w.logger.Error("notification job failed", zap.String("job", job.name), zap.Error(err))
		}
		cancel()
	}
}
