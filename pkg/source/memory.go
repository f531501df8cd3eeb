package source

import (
	"context"
	"sync"

	"github.com/AutoMQ/idalloc/pkg/numeric"
)

// Memory is an in-process Source, one independent counter per tenant.
// It is safe for concurrent use. Intended for tests and single-process
// deployments that do not need the counter to survive a restart.
type Memory struct {
	mu    sync.Mutex
	start int64
	step  int64
	next  map[string]int64
}

// NewMemory creates a Memory source. Every tenant's counter begins at start
// and advances by step per fetch; step should equal the consuming
// allocator's increment size.
func NewMemory(start, step int64) *Memory {
	if step <= 0 {
		step = 1
	}
	return &Memory{
		start: start,
		step:  step,
		next:  make(map[string]int64),
	}
}

func (m *Memory) NextValue(_ context.Context, tenant string) (numeric.Holder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.next[tenant]
	if !ok {
		v = m.start
	}
	m.next[tenant] = v + m.step
	return numeric.NewInt64(v), nil
}
