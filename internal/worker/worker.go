package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"bitstamp-trade-bot-go/internal/bitstamp"
	"bitstamp-trade-bot-go/internal/metrics"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when a worker instance is started while a
// previous run is still in progress.
var ErrAlreadyRunning = errors.New("worker is already running")

// Func is one unit of work. The returned value is only meaningful to
// RunOnce callers, which receive the first success's result.
type Func[T any] func(ctx context.Context) (T, error)

// Worker repeatedly executes a unit of work, sleeping a fixed interval
// between iterations and retrying forever on failure.
//
// Any error from the work func is caught, counted and logged, never
// propagated: an unattended agent must outlive transient exchange and
// network failures. There is no backoff growth and no retry cap; a worker
// only stops on Stop, context cancellation, or (for RunOnce) the first
// success. Invalid-nonce failures are logged at Info since they are routine
// under concurrent or restarted clients.
type Worker[T any] struct {
	name     string
	interval time.Duration
	work     Func[T]
	log      *zap.Logger

	mu         sync.Mutex
	iterations int
	failures   int
	shouldStop bool
	isRunning  bool
}

// New creates a worker that runs work every interval.
func New[T any](name string, interval time.Duration, log *zap.Logger, work Func[T]) *Worker[T] {
	return &Worker[T]{
		name:     name,
		interval: interval,
		work:     work,
		log:      log.Named(name),
	}
}

// Name returns the worker's name.
func (w *Worker[T]) Name() string { return w.name }

// Iterations returns how many work cycles completed since the last run
// started.
func (w *Worker[T]) Iterations() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.iterations
}

// Failures returns how many of those cycles failed.
func (w *Worker[T]) Failures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failures
}

// Successes returns iterations minus failures.
func (w *Worker[T]) Successes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.iterations - w.failures
}

// Stop prevents the next iteration from starting. In-flight work is not
// interrupted.
func (w *Worker[T]) Stop() {
	w.log.Info("stopping")
	w.mu.Lock()
	w.shouldStop = true
	w.mu.Unlock()
}

// RunOnce runs until exactly one success and returns that success's result.
func (w *Worker[T]) RunOnce(ctx context.Context) (T, error) {
	return w.run(ctx, 1)
}

// RunForever runs indefinitely, until Stop or context cancellation.
func (w *Worker[T]) RunForever(ctx context.Context) error {
	_, err := w.run(ctx, 0)
	return err
}

func (w *Worker[T]) run(ctx context.Context, untilSuccesses int) (T, error) {
	var zero T

	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return zero, ErrAlreadyRunning
	}
	w.isRunning = true
	w.shouldStop = false
	w.iterations = 0
	w.failures = 0
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.isRunning = false
		w.mu.Unlock()
	}()

	if untilSuccesses > 0 {
		w.log.Info("running until successes", zap.Int("successes", untilSuccesses))
	} else {
		w.log.Info("running forever")
	}

	for {
		w.mu.Lock()
		stopped := w.shouldStop
		w.mu.Unlock()
		if stopped {
			return zero, nil
		}

		result, err := w.work(ctx)

		w.mu.Lock()
		w.iterations++
		if err != nil {
			w.failures++
		}
		successes := w.iterations - w.failures
		w.mu.Unlock()

		metrics.WorkerIterations.WithLabelValues(w.name).Inc()
		if err != nil {
			metrics.WorkerFailures.WithLabelValues(w.name).Inc()
			if errors.Is(err, bitstamp.ErrInvalidNonce) {
				// Anything louder would page someone over a routine race.
				w.log.Info("invalid nonce", zap.Error(err))
			} else {
				w.log.Error("work failed", zap.Error(err))
			}
			w.log.Info("will try again")
		} else {
			w.log.Debug("work success")
		}

		if untilSuccesses > 0 && successes >= untilSuccesses {
			return result, nil
		}

		if err := w.sleep(ctx); err != nil {
			return zero, err
		}
	}
}

func (w *Worker[T]) sleep(ctx context.Context) error {
	w.log.Debug("sleeping", zap.Duration("interval", w.interval))
	select {
	case <-time.After(w.interval):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
