package id

import (
	"context"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AutoMQ/idalloc/pkg/numeric"
	"github.com/AutoMQ/idalloc/pkg/source"
)

func countingSource(src source.Source, fetches *atomic.Int64) source.Func {
	return func(ctx context.Context, tenant string) (numeric.Holder, error) {
		fetches.Add(1)
		return src.NextValue(ctx, tenant)
	}
}

func newTestPooled(t *testing.T, src source.Source, incrementSize, subPoolSize int64) *Pooled {
	t.Helper()
	p, err := NewPooled(&PooledParam{
		Source:        src,
		IncrementSize: incrementSize,
		SubPoolSize:   subPoolSize,
	}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestPooled_CarvesAndRefills(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	// blocks of 5 starting at 1, sub-pools of 2:
	// [1,3) [3,5) [5,6) | [6,8) [8,10) [10,11) | [11,...
	var fetches atomic.Int64
	p := newTestPooled(t, countingSource(source.NewMemory(1, 5), &fetches), 5, 2)

	for i := int64(1); i <= 12; i++ {
		got, err := p.Alloc(context.Background(), "")
		re.NoError(err)
		re.Equal(i, got.Int64())
	}
	re.Equal(int64(3), fetches.Load())

	last, err := p.LastSourceValue()
	re.NoError(err)
	re.Equal(int64(11), last.Int64())
}

func TestPooled_IncrementOfOneFetchesEveryCall(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	// a degenerate block size of 1 behaves as a plain remote counter
	var fetches atomic.Int64
	p := newTestPooled(t, countingSource(source.NewMemory(1, 1), &fetches), 1, 100)

	for i := int64(1); i <= 10; i++ {
		got, err := p.Alloc(context.Background(), "")
		re.NoError(err)
		re.Equal(i, got.Int64())
	}
	re.Equal(int64(10), fetches.Load())
}

func TestPooled_SkipsForwardBelowOne(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(-3, 10), 10, 4)

	// the raw value -3 is skipped forward to 1; the block still ends at 7
	for _, want := range []int64{1, 2, 3, 4, 5, 6, 7, 8} {
		got, err := p.Alloc(context.Background(), "")
		re.NoError(err)
		re.Equal(want, got.Int64())
	}

	last, err := p.LastSourceValue()
	re.NoError(err)
	re.Equal(int64(7), last.Int64())
}

func TestPooled_SkipsForwardForTenants(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(0, 5), 5, 2)

	got, err := p.Alloc(context.Background(), "acme")
	re.NoError(err)
	re.Equal(int64(1), got.Int64())
}

func TestPooled_TenantSequencesAreIndependent(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(1, 5), 5, 2)

	// interleaved calls; neither tenant observes the other's cursor
	for i := int64(1); i <= 6; i++ {
		got, err := p.Alloc(context.Background(), "acme")
		re.NoError(err)
		re.Equal(i, got.Int64())

		got, err = p.Alloc(context.Background(), "globex")
		re.NoError(err)
		re.Equal(i, got.Int64())
	}
}

func TestPooled_RegistryIsIdempotent(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(1, 5), 5, 2)

	re.Same(p.locate("acme"), p.locate("acme"))
	re.Same(p.locate(""), p.locate(""))
	re.NotSame(p.locate("acme"), p.locate("globex"))
}

func TestPooled_ConcurrentFirstAccessCreatesOnePartition(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(1, 100), 100, 2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Alloc(context.Background(), "acme")
			re.NoError(err)
		}()
	}
	wg.Wait()

	re.Equal(1, p.tenants.Count())
}

func TestPooled_LocalSequenceIsContiguous(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	// a contiguous source means even sub-pool boundaries stay gapless
	p := newTestPooled(t, source.NewMemory(1, 50), 50, 7)

	prev, err := p.Alloc(context.Background(), "")
	re.NoError(err)
	for i := 0; i < 499; i++ {
		got, err := p.Alloc(context.Background(), "")
		re.NoError(err)
		re.Equal(prev.Int64()+1, got.Int64())
		prev = got
	}
}

func TestPooled_UniqueUnderConcurrency(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	faker := gofakeit.New(1)
	tenants := []string{"", faker.LetterN(6), faker.LetterN(6)}

	p := newTestPooled(t, source.NewMemory(1, 7), 7, 3)

	const workers = 8
	const perWorker = 200

	results := make([][]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			got := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				v, err := p.Alloc(context.Background(), tenants[(w+i)%len(tenants)])
				re.NoError(err)
				got = append(got, tenants[(w+i)%len(tenants)]+"/"+v.String())
			}
			results[w] = got
		}(w)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers*perWorker)
	for _, got := range results {
		for _, v := range got {
			_, dup := seen[v]
			re.False(dup, "duplicate id %s", v)
			seen[v] = struct{}{}
		}
	}
	re.Len(seen, workers*perWorker)
}

func TestPooled_SourceErrorLeavesStateClean(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	errSource := errors.New("source unavailable")
	var fail atomic.Bool
	fail.Store(true)
	mem := source.NewMemory(1, 5)
	src := source.Func(func(ctx context.Context, tenant string) (numeric.Holder, error) {
		if fail.Load() {
			return nil, errSource
		}
		return mem.NextValue(ctx, tenant)
	})

	p := newTestPooled(t, src, 5, 2)

	_, err := p.Alloc(context.Background(), "")
	re.ErrorIs(err, errSource)
	_, err = p.LastSourceValue()
	re.ErrorIs(err, ErrNotInitialized)

	// the failed refill left nothing behind; the next call starts clean
	fail.Store(false)
	got, err := p.Alloc(context.Background(), "")
	re.NoError(err)
	re.Equal(int64(1), got.Int64())
}

func TestPooled_LastSourceValueIgnoresTenants(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(1, 5), 5, 2)

	_, err := p.LastSourceValue()
	re.ErrorIs(err, ErrNotInitialized)

	// tenant allocations do not initialize the no-tenant partition
	_, err = p.Alloc(context.Background(), "acme")
	re.NoError(err)
	_, err = p.LastSourceValue()
	re.ErrorIs(err, ErrNotInitialized)
}

func TestPooled_InvalidIncrementSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		incrementSize int64
	}{
		{name: "zero", incrementSize: 0},
		{name: "negative", incrementSize: -5},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			p, err := NewPooled(&PooledParam{
				Source:        source.NewMemory(1, 1),
				IncrementSize: tt.incrementSize,
			}, zap.NewNop())
			re.ErrorIs(err, ErrInvalidIncrementSize)
			re.Nil(p)
		})
	}
}

func TestPooled_DefaultsSubPoolSize(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(1, 10000), 10000, 0)
	re.Equal(_defaultSubPoolSize, p.subPoolSize)
}

func TestPooled_BigHolderClipArithmetic(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	// counters past MaxInt64 exercise the arbitrary-precision clip path
	base := new(big.Int).Add(big.NewInt(math.MaxInt64), big.NewInt(1))
	next := new(big.Int)
	next.Set(base)
	var mu sync.Mutex
	src := source.Func(func(_ context.Context, _ string) (numeric.Holder, error) {
		mu.Lock()
		defer mu.Unlock()
		h := numeric.NewBig(next)
		next.Add(next, big.NewInt(3))
		return h, nil
	})

	p := newTestPooled(t, src, 3, 2)

	want := []*big.Int{
		new(big.Int).Add(base, big.NewInt(0)),
		new(big.Int).Add(base, big.NewInt(1)),
		new(big.Int).Add(base, big.NewInt(2)), // clipped carve of size 1
		new(big.Int).Add(base, big.NewInt(3)), // new block
		new(big.Int).Add(base, big.NewInt(4)),
	}
	for i, w := range want {
		got, err := p.Alloc(context.Background(), "")
		re.NoError(err)
		re.Equal(w.String(), got.String(), "call %d", i+1)
	}
}

func TestPooled_AppliesIncrementToSource(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	p := newTestPooled(t, source.NewMemory(1, 1), 1, 1)
	re.True(p.AppliesIncrementToSource())
}
