package id

import (
	"context"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/petermattis/goid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AutoMQ/idalloc/pkg/numeric"
	"github.com/AutoMQ/idalloc/pkg/source"
	"github.com/AutoMQ/idalloc/pkg/util/traceutil"
)

// partition is the per-tenant allocation window.
// All fields are guarded by the owning Pooled's mutex.
type partition struct {
	// last value read from the source
	lastSourceValue numeric.Holder
	// the current cursor
	cursor numeric.Holder
	// the value at which we'll hit the source again
	upperLimit numeric.Holder
}

// subPool is a smaller window carved out of a partition, owned exclusively
// by the goroutine that carved it. No lock guards it.
type subPool struct {
	cursor     numeric.Holder
	upperLimit numeric.Holder
}

func (s *subPool) hasNext() bool {
	return s.cursor.Less(s.upperLimit)
}

// Pooled issues identifiers from blocks of incrementSize values, fetched
// from the source one block per round trip. Non-tenant allocations are
// served from goroutine-confined sub-pools so the hot path takes no lock;
// everything else runs under a single allocator-wide mutex.
//
// Sub-pools are keyed by goroutine id and never evicted, mirroring
// thread-local lifetime: the intended callers are long-lived worker
// goroutines. Ranges held by exited goroutines are wasted, never reissued.
type Pooled struct {
	mu  sync.Mutex
	src source.Source

	incrementSize int64
	subPoolSize   int64

	// noTenant is materialized on first use, under mu.
	noTenant *partition
	// tenants maps tenant key to its partition, created lazily.
	tenants cmap.ConcurrentMap[string, *partition]
	// locals maps goroutine id to that goroutine's sub-pool.
	locals cmap.ConcurrentMap[int64, *subPool]

	lg *zap.Logger
}

// PooledParam is the parameter for creating a new pooled allocator.
type PooledParam struct {
	Source        source.Source
	IncrementSize int64 // IncrementSize is the block size reserved per source round trip. It must be at least 1.
	SubPoolSize   int64 // SubPoolSize is the size of a goroutine-confined carve-out. If SubPoolSize is not positive, it will be set to 5000. Smaller values mean more lock traffic, larger values more waste on shutdown; it is a tuning knob, not a correctness one.
}

// NewPooled creates a new pooled allocator.
func NewPooled(param *PooledParam, lg *zap.Logger) (*Pooled, error) {
	if param.IncrementSize < 1 {
		return nil, errors.WithStack(ErrInvalidIncrementSize)
	}
	subPoolSize := param.SubPoolSize
	if subPoolSize <= 0 {
		subPoolSize = _defaultSubPoolSize
	}
	return &Pooled{
		src:           param.Source,
		incrementSize: param.IncrementSize,
		subPoolSize:   subPoolSize,
		tenants:       cmap.New[*partition](),
		locals:        cmap.NewWithCustomShardingFunction[int64, *subPool](shardInt64),
		lg:            lg,
	}, nil
}

// Alloc allocates the next identifier for the given tenant.
//
// Tenant-scoped calls always serialize on the allocator mutex, since a
// tenant is not bound to a calling goroutine. Non-tenant calls first try the
// calling goroutine's sub-pool; only an absent or exhausted sub-pool falls
// through to the mutex.
func (p *Pooled) Alloc(ctx context.Context, tenant string) (numeric.Value, error) {
	if tenant == "" {
		if local, ok := p.locals.Get(goid.Get()); ok && local.hasNext() {
			return local.cursor.ValueThenIncrement(), nil
		}
	}
	return p.allocSlow(ctx, tenant)
}

func (p *Pooled) allocSlow(ctx context.Context, tenant string) (numeric.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.locate(tenant)
	if state.lastSourceValue == nil || !state.cursor.Less(state.upperLimit) {
		if err := p.refill(ctx, state, tenant); err != nil {
			return numeric.Value{}, err
		}
	}

	if tenant != "" {
		return state.cursor.ValueThenIncrement(), nil
	}

	local := p.carve(state)
	p.locals.Set(goid.Get(), local)
	return local.cursor.ValueThenIncrement(), nil
}

// refill reserves a fresh block from the source. On failure the partition is
// left untouched, so the next call simply retries the fetch.
func (p *Pooled) refill(ctx context.Context, state *partition, tenant string) error {
	last, err := p.src.NextValue(ctx, tenant)
	if err != nil {
		return errors.WithMessage(err, "fetch next value")
	}

	state.lastSourceValue = last
	state.upperLimit = last.Clone()
	state.upperLimit.Add(p.incrementSize)
	state.cursor = last.Clone()
	// handle sources whose raw starting value is less than one (some
	// databases start sequences at 0 or below)
	for state.cursor.LessInt(1) {
		state.cursor.Increment()
	}

	if p.lg.Core().Enabled(zap.DebugLevel) {
		p.lg.Debug("refilled block",
			zap.String("tenant", tenant),
			zap.Stringer("last-source-value", last.Value()),
			zap.Stringer("upper-limit", state.upperLimit.Value()),
			traceutil.TraceLogField(ctx))
	}
	return nil
}

// carve cuts the next sub-pool out of the partition's remaining window,
// clipping at the partition's upper limit.
func (p *Pooled) carve(state *partition) *subPool {
	local := &subPool{cursor: state.cursor.Clone()}
	state.cursor.Add(p.subPoolSize)
	if !state.cursor.Less(state.upperLimit) {
		// overshot; move the cursor back so it lands exactly on the limit.
		// The excess is always small, so the int64 delta is safe even for
		// arbitrary-precision holders.
		state.cursor.Subtract(state.cursor.Delta(state.upperLimit))
	}
	local.upperLimit = state.cursor.Clone()
	return local
}

// locate returns the partition for the tenant, creating it on first use.
// Repeated calls with the same tenant return the same instance.
func (p *Pooled) locate(tenant string) *partition {
	if tenant == "" {
		if p.noTenant == nil {
			p.noTenant = &partition{}
		}
		return p.noTenant
	}
	p.tenants.SetIfAbsent(tenant, &partition{})
	state, _ := p.tenants.Get(tenant)
	return state
}

// LastSourceValue returns the raw value most recently fetched for the
// no-tenant partition.
func (p *Pooled) LastSourceValue() (numeric.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.noTenant == nil || p.noTenant.lastSourceValue == nil {
		return numeric.Value{}, errors.WithStack(ErrNotInitialized)
	}
	return p.noTenant.lastSourceValue.Value(), nil
}

// AppliesIncrementToSource reports that the source must advance by the
// allocator's increment size on each fetch. Always true for this allocator;
// see the Source docs for the contract.
func (p *Pooled) AppliesIncrementToSource() bool {
	return true
}

// Logger returns the allocator's logger.
func (p *Pooled) Logger() *zap.Logger {
	return p.lg
}

func shardInt64(key int64) uint32 {
	return uint32(key) ^ uint32(key>>32)
}
