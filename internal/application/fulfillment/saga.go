package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthonycursewl/wheek-fulfillment/internal/pkg/logging"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// step is a single unit of work in the saga. compensate semantically undoes
// a committed execute when a later step fails; nil means there is nothing to
// undo. A barrier step marks a point of no return: once it completes, no
// earlier compensation may run (the money has moved).
type step struct {
	name       string
	barrier    bool
	execute    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// run executes the steps sequentially, each inside its own transaction
// boundary. On failure, the compensations of the completed steps run in
// reverse order, also each in its own transaction.
func (s *Service) run(ctx context.Context, steps []step) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "fulfillment_saga"))

	var completed []step
	for _, st := range steps {
		stepCtx, span := s.tracer.Start(ctx, "saga."+st.name)
		logger.Info("saga_step_start", zap.String("step", st.name))

		start := time.Now()
		err := s.txm.WithinTx(stepCtx, st.execute)
		s.metrics.observeStep(st.name, time.Since(start))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			logger.Warn("saga_step_failed",
				zap.String("step", st.name),
				zap.Error(err),
			)
			return s.rollback(ctx, completed, err)
		}
		span.End()

		if st.barrier {
			// Payment is captured: anything before this point must stand even
			// if a later step fails.
			completed = completed[:0]
			continue
		}
		completed = append(completed, st)
	}

	logger.Info("saga_completed")
	return nil
}

// rollback runs compensations newest-first. A compensation failure is not
// swallowed: it is joined to the triggering error so neither masks the
// other.
func (s *Service) rollback(ctx context.Context, completed []step, cause error) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "fulfillment_saga"))

	for i := len(completed) - 1; i >= 0; i-- {
		st := completed[i]
		if st.compensate == nil {
			continue
		}
		logger.Info("saga_compensate", zap.String("step", st.name))
		if err := s.txm.WithinTx(ctx, st.compensate); err != nil {
			logger.Error("saga_compensate_failed",
				zap.String("step", st.name),
				zap.Error(err),
			)
			cause = errors.Join(cause, fmt.Errorf("compensate %s: %w", st.name, err))
		}
	}
	return cause
}
