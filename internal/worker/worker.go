// Package worker runs the journal side of gastos: it consumes ledger events
// from the broker and exports the journal to the sheet.
package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/log"
	"gastos/internal/services"
)

// Consumer delivers ledger events to a handler until ctx is done.
type Consumer interface {
	ConsumeEvents(ctx context.Context, handler amqp.Handler) error
}

// Worker ties a consumer to a journal processor.
type Worker struct {
	consumer  Consumer
	processor *services.JournalProcessor
	logger    *log.Logger
}

// New returns a worker. consumer may be nil, in which case only the export
// loop runs (events are journaled in-process by the web server).
func New(consumer Consumer, processor *services.JournalProcessor, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.Discard()
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled or one of the loops fails. A cancelled
// context is a clean shutdown and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			w.logger.InfoContext(ctx, "Consuming ledger events")
			return w.consumer.ConsumeEvents(ctx, w.processor.HandleEvent)
		})
	} else {
		w.logger.InfoContext(ctx, "Skipping AMQP message consumption - no consumer configured")
	}

	g.Go(func() error {
		return w.processor.Run(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		w.logger.Info("Worker stopped")
		return nil
	}
	return err
}
