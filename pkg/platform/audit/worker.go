package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher ships events to an external sink (Kafka). Optional; a nil
// publisher means events are only persisted locally.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder is the write side handed to services. Record is non-blocking:
// audit delivery must never sit on a request path.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

// Worker drains the recorder inbox, appends each event to the store and
// forwards it to the publisher when one is configured.
type Worker struct {
	store     Store
	publisher Publisher
	recorder  *Recorder
	logger    *slog.Logger
}

// NewWorker builds the worker and its recorder pair.
func NewWorker(store Store, publisher Publisher, logger *slog.Logger, queueSize int) (*Worker, *Recorder) {
	if queueSize <= 0 {
		queueSize = 512
	}
	recorder := &Recorder{
		inbox:  make(chan Event, queueSize),
		logger: logger,
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
	}, recorder
}

// Record enqueues an event without blocking. A full inbox drops the event
// with a log line; the verification attempt trail, not this stream, is the
// record that must never lose writes.
func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.Warn("audit inbox full, dropping event", "action", string(event.Action))
	}
}

// Run consumes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.recorder.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.Error("audit append failed", "action", string(event.Action), "error", err)
	}
	if w.publisher == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.publisher.Publish(publishCtx, event); err != nil {
		w.logger.Error("audit publish failed", "action", string(event.Action), "error", err)
	}
}
