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

// Package config carries the process configuration for the allocator
// tooling: which authoritative source to use, the allocator tuning knobs,
// and the logging setup. Values come from flags, an optional config file
// and IDALLOC_* environment variables, in the usual viper order.
package config

import (
	"io"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/AutoMQ/idalloc/pkg/util/typeutil"
)

var (
	_defaultConfigFilePaths   = []string{".", "$CONFIG_DIR/"}
	_defaultLogZapOutputPaths = []string{"stderr"}
)

const (
	_envPrefix = "IDALLOC"

	_sourceMemory = "memory"
	_sourceEtcd   = "etcd"

	_defaultSource                = _sourceMemory
	_defaultEtcdEndpoints         = "http://127.0.0.1:2379"
	_defaultEtcdRootPath          = "idalloc"
	_defaultEtcdKey               = "default"
	_defaultStart           int64 = 1
	_defaultIncrementSize   int64 = 100
	_defaultSubPoolSize     int64 = 5000
	_defaultWorkers               = 4
	_defaultAllocations           = 10000
	_defaultTenants               = 0
	_defaultReportInterval        = "10s"

	_defaultLogLevel            = "INFO"
	_defaultLogZapEncoding      = "json"
	_defaultLogEnableRotation   = false
	_defaultLogRotateMaxSize    = 64
	_defaultLogRotateMaxAge     = 180
	_defaultLogRotateMaxBackups = 0
	_defaultLogRotateLocalTime  = false
	_defaultLogRotateCompress   = false
)

// Config is the configuration for the allocator tooling.
type Config struct {
	Log *Log

	// Source is the authoritative source kind, "memory" or "etcd".
	Source        string
	EtcdEndpoints string
	EtcdRootPath  string
	EtcdKey       string

	// Start is the first raw value handed out by a fresh source.
	Start         int64
	IncrementSize int64
	SubPoolSize   int64

	Workers        int
	Allocations    int
	Tenants        int
	ReportInterval typeutil.Duration

	lg *zap.Logger
}

// NewConfig creates a new config from command line arguments, the optional
// configuration file and environment variables.
func NewConfig(arguments []string, errOutput io.Writer) (*Config, error) {
	cfg := &Config{Log: NewLog()}

	v := newViper()
	fs := newFlagSet(errOutput)
	configure(v, fs)

	// parse from command line
	fs.String("config", "", "configuration file")
	err := fs.Parse(arguments)
	if err != nil {
		return nil, err
	}

	// read configuration from file
	c, _ := fs.GetString("config")
	if c != "" {
		v.SetConfigFile(c)
		err = v.ReadInConfig()
		if err != nil {
			return nil, errors.Wrap(err, "read configuration file")
		}
	}

	err = v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal configuration")
	}

	err = cfg.Log.Adjust()
	if err != nil {
		return nil, errors.Wrap(err, "adjust log configuration")
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	cfg.lg = logger

	if configFile := v.ConfigFileUsed(); configFile != "" {
		logger.Info("load configuration from file", zap.String("file-name", configFile))
	}
	return cfg, nil
}

// Adjust generates values for fields derivable from others.
func (c *Config) Adjust() error {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Source {
	case _sourceMemory:
	case _sourceEtcd:
		if len(c.EtcdEndpointList()) == 0 {
			return errors.New("no etcd endpoints configured")
		}
	default:
		return errors.Errorf("unknown source kind %q", c.Source)
	}
	if c.IncrementSize < 1 {
		return errors.New("increment size cannot be less than 1")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.Allocations < 1 {
		return errors.New("allocations must be at least 1")
	}
	if c.Tenants < 0 {
		return errors.New("tenants cannot be negative")
	}
	return nil
}

// EtcdEndpointList splits EtcdEndpoints into a list, dropping empty items.
func (c *Config) EtcdEndpointList() []string {
	return typeutil.FilterZero(strings.Split(c.EtcdEndpoints, ","))
}

// UseEtcd reports whether the etcd source is configured.
func (c *Config) UseEtcd() bool {
	return c.Source == _sourceEtcd
}

// Logger returns logger generated based on the config.
// It can be used after calling NewConfig.
func (c *Config) Logger() *zap.Logger {
	if c != nil {
		return c.lg
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix(_envPrefix)
	v.AutomaticEnv()
	for _, filePath := range _defaultConfigFilePaths {
		v.AddConfigPath(filePath)
	}
	return v
}

func newFlagSet(errOutput io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("idalloc", pflag.ContinueOnError)
	fs.SetOutput(errOutput)
	return fs
}

func configure(v *viper.Viper, fs *pflag.FlagSet) {
	// source settings
	fs.String("source", _defaultSource, "authoritative source kind, \"memory\" or \"etcd\"")
	fs.String("etcd-endpoints", _defaultEtcdEndpoints, "comma separated etcd endpoints, used when the source is \"etcd\"")
	fs.String("etcd-root-path", _defaultEtcdRootPath, "prefix of all counter keys in etcd")
	fs.String("etcd-key", _defaultEtcdKey, "key identifying the counter in etcd")
	fs.Int64("start", _defaultStart, "first raw value handed out by a fresh source")
	_ = v.BindPFlag("source", fs.Lookup("source"))
	_ = v.BindPFlag("etcdEndpoints", fs.Lookup("etcd-endpoints"))
	_ = v.BindPFlag("etcdRootPath", fs.Lookup("etcd-root-path"))
	_ = v.BindPFlag("etcdKey", fs.Lookup("etcd-key"))
	_ = v.BindPFlag("start", fs.Lookup("start"))

	// allocator settings
	fs.Int64("increment-size", _defaultIncrementSize, "identifier block size reserved per source round trip")
	fs.Int64("sub-pool-size", _defaultSubPoolSize, "size of a goroutine-confined carve-out")
	_ = v.BindPFlag("incrementSize", fs.Lookup("increment-size"))
	_ = v.BindPFlag("subPoolSize", fs.Lookup("sub-pool-size"))

	// bench settings
	fs.Int("workers", _defaultWorkers, "number of worker goroutines")
	fs.Int("allocations", _defaultAllocations, "number of allocations per worker")
	fs.Int("tenants", _defaultTenants, "number of tenant keys mixed into the workload, 0 for none")
	fs.String("report-interval", _defaultReportInterval, "time between progress reports")
	_ = v.BindPFlag("workers", fs.Lookup("workers"))
	_ = v.BindPFlag("allocations", fs.Lookup("allocations"))
	_ = v.BindPFlag("tenants", fs.Lookup("tenants"))
	_ = v.BindPFlag("reportInterval", fs.Lookup("report-interval"))

	logConfigure(v, fs)
}
