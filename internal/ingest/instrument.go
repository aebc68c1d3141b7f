package ingest

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Timed runs fn and logs its elapsed time under the given operation name.
// Applied explicitly at call sites instead of wrapping methods.
func Timed(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	logger := logutil.GetLogger(ctx).With(
		zap.String("op", name),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		logger.Warn("operation finished with error", zap.Error(err))
		return err
	}
	logger.Debug("operation finished")
	return nil
}
