package testutil

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/server/v3/embed"
	"go.uber.org/zap"

	tempurl "github.com/AutoMQ/idalloc/pkg/util/testutil/url"
)

// StartEtcd starts an embedded etcd for the unit test purpose.
func StartEtcd(re *require.Assertions, tb testing.TB) (*embed.Etcd, *clientv3.Client, func()) {
	cfg := NewEtcdConfig(tb)
	etcd, err := embed.StartEtcd(cfg)
	re.NoError(err)

	ep := cfg.LCUrls[0].String()
	client, err := clientv3.New(clientv3.Config{
		Endpoints: []string{ep},
		Logger:    zap.NewNop(),
	})
	re.NoError(err)

	<-etcd.Server.ReadyNotify()

	return etcd, client, func() { _ = client.Close(); etcd.Close() }
}

// NewEtcdConfig is used to create an etcd config for the unit test purpose.
func NewEtcdConfig(tb testing.TB) *embed.Config {
	cfg := embed.NewConfig()
	cfg.Name = "test_etcd"
	cfg.Dir = tb.TempDir()
	cfg.WalDir = ""
	cfg.Logger = "zap"
	cfg.LogOutputs = []string{"stdout"}

	pu, _ := url.Parse(tempurl.Alloc(tb))
	cfg.LPUrls = []url.URL{*pu}
	cfg.APUrls = cfg.LPUrls
	cu, _ := url.Parse(tempurl.Alloc(tb))
	cfg.LCUrls = []url.URL{*cu}
	cfg.ACUrls = cfg.LCUrls

	cfg.StrictReconfigCheck = false
	cfg.InitialCluster = fmt.Sprintf("%s=%s", cfg.Name, &cfg.LPUrls[0])
	cfg.ClusterState = embed.ClusterStateFlagNew

	cfg.LogLevel = "error"
	return cfg
}
