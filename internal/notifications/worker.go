package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	BatchSize         int
	PollInterval      time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	NumWorkers        int
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:         50,
		PollInterval:      5 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        5 * time.Minute,
		BackoffMultiplier: 2.0,
		NumWorkers:        2,
	}
}

// Worker delivers queued notifications.
type Worker struct {
	config     WorkerConfig
	queue      *Queue
	dispatcher *Dispatcher

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a new notification worker.
func NewWorker(config WorkerConfig, queue *Queue, dispatcher *Dispatcher) *Worker {
	return &Worker{
		config:     config,
		queue:      queue,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting notification worker",
		"workers", w.config.NumWorkers,
		"batch_size", w.config.BatchSize,
		"poll_interval", w.config.PollInterval,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("notification worker stopped")
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.ProcessBatch(ctx, workerID)
		}
	}
}

// ProcessBatch delivers one batch of due queue items.
func (w *Worker) ProcessBatch(ctx context.Context, workerID int) {
	items := w.queue.FetchDue(ctx, w.config.BatchSize, time.Now())
	if len(items) == 0 {
		return
	}

	slog.Debug("processing notifications", "worker", workerID, "count", len(items))

	for _, item := range items {
		w.processItem(ctx, item)
	}

	recordQueueStats(w.queue.Stats())
}

func (w *Worker) processItem(ctx context.Context, item QueueItem) {
	start := time.Now()

	inc := item.Incident
	notification := Notification{
		To:       item.To,
		Subject:  item.Subject,
		Body:     item.Body,
		Incident: &inc,
	}

	err := w.dispatcher.SendToChannel(ctx, item.Channel, notification)
	duration := time.Since(start)

	if err != nil {
		w.handleSendError(ctx, item, err)
		return
	}

	if err := w.queue.MarkSent(ctx, item.ID, time.Now()); err != nil {
		slog.Error("failed to mark as sent", "item_id", item.ID, "error", err)
	}

	recordNotificationSent(string(item.Channel), "success")
	recordNotificationDuration(string(item.Channel), duration)

	slog.Debug("notification sent",
		"item_id", item.ID,
		"channel", item.Channel,
		"duration", duration,
	)
}

func (w *Worker) handleSendError(ctx context.Context, item QueueItem, err error) {
	slog.Warn("send failed",
		"item_id", item.ID,
		"attempt", item.Attempts+1,
		"max_attempts", item.MaxAttempts,
		"error", err,
	)

	if !isRetryable(err) {
		if markErr := w.queue.MarkFailed(ctx, item.ID, err, time.Now()); markErr != nil {
			slog.Error("failed to mark as failed", "item_id", item.ID, "error", markErr)
		}
		recordNotificationSent(string(item.Channel), "failed")
		return
	}

	maxAttempts := item.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = w.config.MaxAttempts
	}

	if item.Attempts+1 >= maxAttempts {
		if markErr := w.queue.MarkFailed(ctx, item.ID, fmt.Errorf("max attempts exceeded: %w", err), time.Now()); markErr != nil {
			slog.Error("failed to mark as failed", "item_id", item.ID, "error", markErr)
		}
		recordNotificationSent(string(item.Channel), "failed")
		return
	}

	nextAttempt := w.calculateNextAttempt(item.Attempts + 1)
	if markErr := w.queue.MarkForRetry(ctx, item.ID, err, nextAttempt); markErr != nil {
		slog.Error("failed to mark for retry", "item_id", item.ID, "error", markErr)
	}
	recordNotificationSent(string(item.Channel), "retry")

	slog.Info("notification scheduled for retry",
		"item_id", item.ID,
		"next_attempt", nextAttempt,
	)
}

func (w *Worker) calculateNextAttempt(attempt int) time.Time {
	backoff := float64(w.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= w.config.BackoffMultiplier
	}

	if backoff > float64(w.config.MaxBackoff) {
		backoff = float64(w.config.MaxBackoff)
	}

	return time.Now().Add(time.Duration(backoff))
}

// RetryableError wraps an error and marks it as retryable or not.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// IsRetryable returns whether the error is retryable.
func (e *RetryableError) IsRetryable() bool {
	return e.Retryable
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	// Default: retry unknown errors
	return true
}
