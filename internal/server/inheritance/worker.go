package inheritance

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval - период опроса просроченных записей по умолчанию
const DefaultPollInterval = time.Minute

// Worker периодически вызывает UnlockScheduled и ActivateDue.
// Первый проход выполняется сразу при старте, что восстанавливает
// активации, пропущенные во время простоя.
type Worker struct {
	scheduler *Scheduler
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	interval  time.Duration
	mu        sync.Mutex
}

// NewWorker creates a new polling worker
func NewWorker(scheduler *Scheduler, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Worker{
		scheduler: scheduler,
		logger:    logger,
		interval:  interval,
	}
}

// Start запускает цикл опроса в отдельной горутине
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)

	w.logger.Info("Inheritance worker started", slog.Duration("interval", w.interval))
}

// Stop останавливает цикл и ждет завершения текущего прохода
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	w.logger.Info("Inheritance worker stopped")
}

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.scheduler.kick:
		}
	}
}

// RunOnce выполняет один проход: плановые разблокировки, затем активации
func (w *Worker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	unlocked, err := w.scheduler.UnlockScheduled(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Scheduled unlock pass failed", slog.String("error", err.Error()))
	}

	activated, err := w.scheduler.ActivateDue(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Activation pass failed", slog.String("error", err.Error()))
	}

	if unlocked > 0 || activated > 0 {
		w.logger.InfoContext(ctx, "Inheritance worker pass",
			slog.Int("unlocked", unlocked),
			slog.Int("activated", activated),
		)
	}
}
