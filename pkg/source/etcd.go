// Copyright 2016 TiKV Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"strings"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/AutoMQ/idalloc/pkg/numeric"
	"github.com/AutoMQ/idalloc/pkg/util/etcdutil"
	"github.com/AutoMQ/idalloc/pkg/util/traceutil"
	"github.com/AutoMQ/idalloc/pkg/util/typeutil"
)

const (
	_keySeparator = "/"
	_pathPrefix   = "id-seq"

	_valueLen = 8
)

var (
	// ErrTxnFailed is the error when etcd transaction failed.
	ErrTxnFailed = errors.New("etcd transaction failed")
)

// Etcd is a Source whose counter is persisted in etcd, one key per tenant
// under RootPath/id-seq/Key. Each fetch advances the stored counter by Step
// with a compare-and-put transaction and returns the previous value.
type Etcd struct {
	client   *clientv3.Client
	cmpFunc  func() clientv3.Cmp
	rootPath string
	key      string
	start    int64
	step     int64

	lg *zap.Logger
}

// EtcdParam is the parameter for creating a new etcd source.
type EtcdParam struct {
	Client   *clientv3.Client
	CmpFunc  func() clientv3.Cmp // CmpFunc is used to create a transaction. If CmpFunc is nil, the transaction will not have any additional condition.
	RootPath string              // RootPath is the prefix of all keys in etcd.
	Key      string              // Key is the unique key to identify the source.
	Start    int64               // Start is the first raw value handed out for each tenant.
	Step     int64               // Step is how far the stored counter advances per fetch. It must equal the consuming allocator's increment size. If Step is 0, it will be set to 1.
}

// NewEtcd creates a new etcd source.
func NewEtcd(param *EtcdParam, lg *zap.Logger) *Etcd {
	e := &Etcd{
		client:   param.Client,
		cmpFunc:  param.CmpFunc,
		rootPath: param.RootPath,
		key:      param.Key,
		start:    param.Start,
		step:     param.Step,
	}
	e.lg = lg.With(zap.String("etcd-id-source-key", e.path("")))

	if e.step == 0 {
		e.step = 1
	}
	return e
}

// NextValue fetches the next raw block-start value for the tenant and
// advances the stored counter by the configured step.
//
// There is no retry on a failed transaction: one source instance per key is
// the deployment contract, so a conflict means the CmpFunc guard no longer
// holds and retrying would not help.
func (e *Etcd) NextValue(ctx context.Context, tenant string) (numeric.Holder, error) {
	logger := e.lg.With(traceutil.TraceLogField(ctx))
	path := e.path(tenant)

	kv, err := etcdutil.GetOne(e.client, []byte(path))
	if err != nil {
		return nil, errors.WithMessagef(err, "get key %s", path)
	}

	var cmpList []clientv3.Cmp
	if e.cmpFunc != nil {
		// cmpFunc is evaluated lazily, right before each transaction.
		cmpList = append(cmpList, e.cmpFunc())
	}

	var prev int64
	if kv == nil {
		prev = e.start
		cmpList = append(cmpList, clientv3.Compare(clientv3.CreateRevision(path), "=", 0))
	} else {
		prev, err = typeutil.BytesToInt64(kv.Value)
		if err != nil {
			return nil, errors.WithMessagef(err, "parse value of key %s", path)
		}
		cmpList = append(cmpList, clientv3.Compare(clientv3.Value(path), "=", string(kv.Value)))
	}
	next := prev + e.step

	value := mcache.Malloc(_valueLen)
	typeutil.PutInt64(value, next)
	txn := etcdutil.NewTxn(ctx, e.client, logger).If(cmpList...).Then(clientv3.OpPut(path, string(value)))
	resp, err := txn.Commit()
	mcache.Free(value)
	if err != nil {
		return nil, errors.WithMessage(err, "advance stored counter")
	}
	if !resp.Succeeded {
		logger.Error("failed to advance stored counter", zap.String("key", path), zap.Int64("next", next))
		return nil, errors.WithMessage(ErrTxnFailed, "advance stored counter")
	}

	return numeric.NewInt64(prev), nil
}

// Logger returns the source's logger.
func (e *Etcd) Logger() *zap.Logger {
	return e.lg
}

func (e *Etcd) path(tenant string) string {
	elems := typeutil.FilterZero([]string{e.rootPath, _pathPrefix, e.key, tenant})
	return strings.Join(elems, _keySeparator)
}
