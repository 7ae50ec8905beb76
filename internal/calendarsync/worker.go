package calendarsync

import (
	"context"
	"sync"
	"time"

	"sessionbook/internal/logger"
	"sessionbook/internal/metrics"
)

const (
	popTimeout          = 2 * time.Second
	queueReportInterval = 15 * time.Second
)

type reconciler interface {
	Reconcile(ctx context.Context, bookingID int) error
}

// Worker drains the sync queue. Each task runs under its own timeout and
// holds the booking's lock while it runs; a failed task goes back on the
// queue until MaxTries.
type Worker struct {
	queue      *Queue
	reconciler reconciler
	timeout    time.Duration
	retryDelay time.Duration
	busyDelay  time.Duration
}

func NewWorker(queue *Queue, r reconciler, timeout time.Duration) *Worker {
	return &Worker{
		queue:      queue,
		reconciler: r,
		timeout:    timeout,
		retryDelay: 5 * time.Second,
		busyDelay:  500 * time.Millisecond,
	}
}

// Run starts n consumers plus the queue length reporter and blocks until
// ctx is cancelled and all of them have returned.
func (w *Worker) Run(ctx context.Context, n int) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i + 1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reportQueueLength(ctx)
	}()

	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	logger.Info("Calendar sync worker started", "worker", id)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Calendar sync worker stopped", "worker", id)
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *Worker) processNext(ctx context.Context) {
	task, err := w.queue.Pop(ctx, popTimeout)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Failed to read calendar sync queue", "error", err)
			sleep(ctx, time.Second)
		}
		return
	}
	if task == nil {
		return
	}
	w.handle(ctx, *task)
}

func (w *Worker) handle(ctx context.Context, task Task) {
	// The lock outlives the task timeout by the bookkeeping writes.
	unlock, err := w.queue.Lock(ctx, task.BookingID, w.timeout+persistTimeout)
	if err != nil {
		logger.Warn("Failed to lock booking for calendar sync", "booking_id", task.BookingID, "error", err)
	}
	if unlock == nil {
		// Busy or unlockable: try again later without spending a try.
		w.requeue(ctx, task, w.busyDelay)
		return
	}

	task.Tries++
	taskCtx, cancel := context.WithTimeout(ctx, w.timeout)
	err = w.reconciler.Reconcile(taskCtx, task.BookingID)
	cancel()
	unlock()
	if err == nil {
		return
	}

	if task.Tries < MaxTries {
		w.requeue(ctx, task, w.retryDelay)
		return
	}

	logger.Error("Calendar sync gave up", "task_id", task.ID, "booking_id", task.BookingID, "tries", task.Tries, "error", err)
	if err := w.queue.Fail(context.WithoutCancel(ctx), task, err); err != nil {
		logger.Error("Failed to park calendar sync task", "task_id", task.ID, "error", err)
	}
}

// requeue pushes the task back after delay. It pushes even if the worker is
// shutting down so the task is not lost.
func (w *Worker) requeue(ctx context.Context, task Task, delay time.Duration) {
	sleep(ctx, delay)
	if err := w.queue.push(context.WithoutCancel(ctx), task); err != nil {
		logger.Error("Failed to requeue calendar sync", "task_id", task.ID, "booking_id", task.BookingID, "error", err)
		return
	}
	logger.Info("Calendar sync requeued", "task_id", task.ID, "booking_id", task.BookingID, "tries", task.Tries)
}

func (w *Worker) reportQueueLength(ctx context.Context) {
	ticker := time.NewTicker(queueReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.queue.Length(ctx)
			if err != nil {
				logger.Warn("Failed to read calendar sync queue length", "error", err)
				continue
			}
			metrics.CalendarSyncQueueLength.Set(float64(n))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
