// Package main is the entrypoint for idalloc-bench, a load generator that
// hammers a pooled allocator and verifies that every identifier it hands
// out is unique.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/AutoMQ/idalloc/pkg/config"
	"github.com/AutoMQ/idalloc/pkg/id"
	"github.com/AutoMQ/idalloc/pkg/source"
	"github.com/AutoMQ/idalloc/pkg/util/etcdutil"
	"github.com/AutoMQ/idalloc/pkg/util/logutil"
	"github.com/AutoMQ/idalloc/pkg/util/randutil"
	"github.com/AutoMQ/idalloc/pkg/util/traceutil"
)

func main() {
	cfg, err := config.NewConfig(os.Args[1:], os.Stderr)
	if errors.Cause(err) == pflag.ErrHelp {
		os.Exit(0)
	}

	// create a logger first
	logger := cfg.Logger()
	if logger == nil {
		// something went wrong, create a new temporary logger
		var zapErr error
		logger, zapErr = zap.NewProduction()
		if zapErr != nil {
			fmt.Printf("error creating zap logger %v", zapErr)
			os.Exit(1)
		}
	}
	logger.Info("running", zap.Strings("args", os.Args))
	if err != nil {
		logger.Error("failed to parse config", zap.Error(err))
		os.Exit(1)
	}

	syncLogger := func() { _ = cfg.Logger().Sync() }

	// check config
	err = cfg.Adjust()
	if err != nil {
		logger.Error("failed to adjust config", zap.Error(err))
		exit(1, syncLogger)
	}
	err = cfg.Validate()
	if err != nil {
		logger.Error("failed to validate config", zap.Error(err))
		exit(1, syncLogger)
	}

	src, closeSource, err := newSource(cfg, logger)
	if err != nil {
		logger.Error("failed to create source", zap.Error(err))
		exit(1, syncLogger)
	}
	defer closeSource()

	allocator, err := id.NewPooled(&id.PooledParam{
		Source:        src,
		IncrementSize: cfg.IncrementSize,
		SubPoolSize:   cfg.SubPoolSize,
	}, logger)
	if err != nil {
		logger.Error("failed to create allocator", zap.Error(err))
		exit(1, syncLogger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sc
		logger.Info("got signal to exit", zap.String("signal", sig.String()))
		cancel()
	}()

	ok := run(ctx, cfg, id.Logger{Allocator: allocator}, logger)
	if !ok {
		exit(1, syncLogger)
	}
	exit(0, syncLogger)
}

func newSource(cfg *config.Config, logger *zap.Logger) (source.Source, func(), error) {
	if !cfg.UseEtcd() {
		return source.NewMemory(cfg.Start, cfg.IncrementSize), func() {}, nil
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.EtcdEndpointList(),
		DialTimeout: etcdutil.DefaultDialTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, errors.WithMessage(err, "create etcd client")
	}
	src := source.NewEtcd(&source.EtcdParam{
		Client:   client,
		RootPath: cfg.EtcdRootPath,
		Key:      cfg.EtcdKey,
		Start:    cfg.Start,
		Step:     cfg.IncrementSize,
	}, logger)
	return src, func() { _ = client.Close() }, nil
}

// run allocates cfg.Workers*cfg.Allocations identifiers and reports
// throughput and uniqueness. It returns false on any error or duplicate.
func run(ctx context.Context, cfg *config.Config, allocator id.Logger, logger *zap.Logger) bool {
	tenants := make([]string, 0, cfg.Tenants+1)
	tenants = append(tenants, "")
	for i := 0; i < cfg.Tenants; i++ {
		tenants = append(tenants, fmt.Sprintf("tenant-%d", i))
	}

	var done atomic.Int64
	var failed atomic.Bool
	results := make([][]string, cfg.Workers)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		go func(w int) {
			defer logutil.LogPanic(logger)
			defer wg.Done()

			seed, err := randutil.Uint64()
			if err != nil {
				logger.Error("failed to seed worker", zap.Error(err))
				failed.Store(true)
				return
			}
			rng := rand.New(rand.NewSource(int64(seed)))

			wCtx := traceutil.SetTraceID(ctx, uuid.New().String())
			got := make([]string, 0, cfg.Allocations)
			for i := 0; i < cfg.Allocations; i++ {
				if wCtx.Err() != nil {
					return
				}
				tenant := tenants[rng.Intn(len(tenants))]
				v, err := allocator.Alloc(wCtx, tenant)
				if err != nil {
					logger.Error("failed to alloc id", zap.String("tenant", tenant), zap.Error(err))
					failed.Store(true)
					return
				}
				got = append(got, tenant+"/"+v.String())
				done.Add(1)
			}
			results[w] = got
		}(w)
	}

	reportDone := make(chan struct{})
	go func() {
		defer logutil.LogPanic(logger)
		ticker := time.NewTicker(cfg.ReportInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.Info("progress", zap.Int64("allocated", done.Load()))
			case <-reportDone:
				return
			}
		}
	}()

	wg.Wait()
	close(reportDone)
	cost := time.Since(start)

	if ctx.Err() != nil || failed.Load() {
		return false
	}

	seen := make(map[string]struct{}, cfg.Workers*cfg.Allocations)
	for _, got := range results {
		for _, v := range got {
			if _, dup := seen[v]; dup {
				logger.Error("duplicate id", zap.String("id", v))
				return false
			}
			seen[v] = struct{}{}
		}
	}

	last, err := allocator.LastSourceValue()
	if err != nil {
		logger.Warn("no source value fetched for the no-tenant pool", zap.Error(err))
	} else {
		logger.Info("last source value", zap.Stringer("value", last))
	}

	logger.Info("bench done",
		zap.Int("workers", cfg.Workers),
		zap.Int64("allocated", done.Load()),
		zap.Duration("cost", cost),
		zap.Float64("ids-per-second", float64(done.Load())/cost.Seconds()),
	)
	return true
}

func exit(code int, deferred func()) {
	deferred()
	os.Exit(code)
}
