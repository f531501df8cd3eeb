package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_Spacing(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	m := NewMemory(1, 5)
	for i, want := range []int64{1, 6, 11} {
		got, err := m.NextValue(context.Background(), "")
		re.NoError(err, "fetch %d", i)
		re.Equal(want, got.Value().Int64())
	}
}

func TestMemory_TenantsAreIndependent(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	m := NewMemory(0, 3)

	for _, tenant := range []string{"", "acme", "globex"} {
		for _, want := range []int64{0, 3, 6} {
			got, err := m.NextValue(context.Background(), tenant)
			re.NoError(err)
			re.Equal(want, got.Value().Int64(), "tenant %q", tenant)
		}
	}
}

func TestMemory_DefaultsStep(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	m := NewMemory(7, 0)
	first, err := m.NextValue(context.Background(), "")
	re.NoError(err)
	second, err := m.NextValue(context.Background(), "")
	re.NoError(err)
	re.Equal(int64(7), first.Value().Int64())
	re.Equal(int64(8), second.Value().Int64())
}
