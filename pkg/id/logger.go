package id

import (
	"context"

	"go.uber.org/zap"

	"github.com/AutoMQ/idalloc/pkg/numeric"
	"github.com/AutoMQ/idalloc/pkg/util/traceutil"
)

// LogAble is an Allocator that exposes its logger.
type LogAble interface {
	Allocator
	Logger() *zap.Logger
}

// Logger is a wrapper of Allocator that logs all operations at debug level.
type Logger struct {
	Allocator LogAble
}

func (l Logger) Alloc(ctx context.Context, tenant string) (v numeric.Value, err error) {
	v, err = l.Allocator.Alloc(ctx, tenant)

	logger := l.logger()
	if logger.Core().Enabled(zap.DebugLevel) {
		logger = logger.With(traceutil.TraceLogField(ctx))
		logger.Debug("alloc id", zap.String("tenant", tenant), zap.Stringer("id", v), zap.Error(err))
	}
	return
}

func (l Logger) LastSourceValue() (v numeric.Value, err error) {
	v, err = l.Allocator.LastSourceValue()

	logger := l.logger()
	if logger.Core().Enabled(zap.DebugLevel) {
		logger.Debug("last source value", zap.Stringer("value", v), zap.Error(err))
	}
	return
}

func (l Logger) logger() *zap.Logger {
	if l.Allocator.Logger() != nil {
		return l.Allocator.Logger()
	}
	return zap.NewNop()
}
