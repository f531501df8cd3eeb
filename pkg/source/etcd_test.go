package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/AutoMQ/idalloc/pkg/util/etcdutil"
	"github.com/AutoMQ/idalloc/pkg/util/testutil"
	"github.com/AutoMQ/idalloc/pkg/util/typeutil"
)

func TestEtcd_NextValue(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	_, client, closeFunc := testutil.StartEtcd(re, t)
	defer closeFunc()

	src := NewEtcd(&EtcdParam{
		Client:   client,
		RootPath: "test-root",
		Key:      "test-key",
		Start:    1,
		Step:     5,
	}, zap.NewNop())

	for _, want := range []int64{1, 6, 11} {
		got, err := src.NextValue(context.Background(), "")
		re.NoError(err)
		re.Equal(want, got.Value().Int64())
	}
}

func TestEtcd_RecoversFromStoredCounter(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	_, client, closeFunc := testutil.StartEtcd(re, t)
	defer closeFunc()

	param := &EtcdParam{
		Client:   client,
		RootPath: "test-root",
		Key:      "test-key",
		Start:    0,
		Step:     10,
	}

	first := NewEtcd(param, zap.NewNop())
	v1, err := first.NextValue(context.Background(), "")
	re.NoError(err)
	re.Equal(int64(0), v1.Value().Int64())

	// a new source on the same key must continue, not restart
	second := NewEtcd(param, zap.NewNop())
	v2, err := second.NextValue(context.Background(), "")
	re.NoError(err)
	re.Equal(int64(10), v2.Value().Int64())
}

func TestEtcd_TenantsUseSeparateKeys(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	_, client, closeFunc := testutil.StartEtcd(re, t)
	defer closeFunc()

	src := NewEtcd(&EtcdParam{
		Client:   client,
		RootPath: "test-root",
		Key:      "test-key",
		Start:    1,
		Step:     2,
	}, zap.NewNop())

	for _, tenant := range []string{"", "acme", "globex"} {
		got, err := src.NextValue(context.Background(), tenant)
		re.NoError(err)
		re.Equal(int64(1), got.Value().Int64(), "tenant %q", tenant)
	}

	got, err := src.NextValue(context.Background(), "acme")
	re.NoError(err)
	re.Equal(int64(3), got.Value().Int64())
}

func TestEtcd_ContinuesFromPresetValue(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	_, client, closeFunc := testutil.StartEtcd(re, t)
	defer closeFunc()

	// an operator may seed the counter out of band
	_, err := etcdutil.Put(client, []byte("test-root/id-seq/test-key"), typeutil.Int64ToBytes(100))
	re.NoError(err)

	src := NewEtcd(&EtcdParam{
		Client:   client,
		RootPath: "test-root",
		Key:      "test-key",
		Start:    1,
		Step:     5,
	}, zap.NewNop())

	got, err := src.NextValue(context.Background(), "")
	re.NoError(err)
	re.Equal(int64(100), got.Value().Int64())
}

func TestEtcd_CmpFuncGuard(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	_, client, closeFunc := testutil.StartEtcd(re, t)
	defer closeFunc()

	src := NewEtcd(&EtcdParam{
		Client: client,
		// a guard that can never hold
		CmpFunc: func() clientv3.Cmp {
			return clientv3.Compare(clientv3.CreateRevision("guard-key"), "!=", 0)
		},
		RootPath: "test-root",
		Key:      "test-key",
		Step:     5,
	}, zap.NewNop())

	_, err := src.NextValue(context.Background(), "")
	re.ErrorIs(err, ErrTxnFailed)
}
