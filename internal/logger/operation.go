package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartOperation tags ctx with a request id and returns a finisher that logs
// the outcome and duration of the named engine operation.
func StartOperation(ctx context.Context, name string, fields ...zap.Field) (context.Context, func(err error)) {
	ctx = EnsureRequestID(ctx)
	start := time.Now()
	log := FromCtx(ctx).With(append([]zap.Field{zap.String("operation", name)}, fields...)...)

	return ctx, func(err error) {
		if err != nil {
			log.Warn("operation failed",
				zap.Duration("duration_ms", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		log.Info("operation completed",
			zap.Duration("duration_ms", time.Since(start)),
		)
	}
}
