package id

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AutoMQ/idalloc/pkg/source"
)

func TestLogger_DebugLogsAllocations(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	obsZapCore, obsLogs := observer.New(zap.DebugLevel)
	p, err := NewPooled(&PooledParam{
		Source:        source.NewMemory(1, 5),
		IncrementSize: 5,
		SubPoolSize:   2,
	}, zap.New(obsZapCore))
	re.NoError(err)

	a := Logger{Allocator: p}
	got, err := a.Alloc(context.Background(), "")
	re.NoError(err)
	re.Equal(int64(1), got.Int64())

	re.Equal(1, obsLogs.FilterMessage("alloc id").Len())
	re.Equal(1, obsLogs.FilterMessage("refilled block").Len())
}

func TestLogger_NopWhenDebugDisabled(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	obsZapCore, obsLogs := observer.New(zap.InfoLevel)
	p, err := NewPooled(&PooledParam{
		Source:        source.NewMemory(1, 5),
		IncrementSize: 5,
	}, zap.New(obsZapCore))
	re.NoError(err)

	a := Logger{Allocator: p}
	_, err = a.Alloc(context.Background(), "")
	re.NoError(err)

	re.Zero(obsLogs.Len())
}
