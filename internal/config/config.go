// Package config loads the options the supervisor consumes (workers,
// timeouts, culling strategy, fork-worker/mold-worker mode, tag, ...),
// using golobby/config's env feeder the way a process supervisor
// normally wires configuration for container/systemd deployment:
// everything overridable by environment variable, with sane defaults
// baked into the struct before Feed runs.
package config

import (
	"fmt"
	"time"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

// CullingStrategy selects which victims cull_workers picks when shrinking
// the pool.
type CullingStrategy string

const (
	CullOldest  CullingStrategy = "oldest"
	CullYoungest CullingStrategy = "youngest"
)

// Options is the full set of configured options the supervisor consumes.
type Options struct {
	Workers           int    `env:"CLUSTER_WORKERS"`
	WorkerTimeout     int    `env:"CLUSTER_WORKER_TIMEOUT"`      // seconds
	WorkerBootTimeout int    `env:"CLUSTER_WORKER_BOOT_TIMEOUT"` // seconds
	WorkerCheckInterval int  `env:"CLUSTER_WORKER_CHECK_INTERVAL"` // seconds
	WorkerCullingStrategy string `env:"CLUSTER_WORKER_CULLING_STRATEGY"`

	// ForkWorkerThreshold is 0 when fork_worker is disabled, or the
	// requests_count threshold that triggers an auto-refork of worker 0
	// on its next PING. A bare boolean "fork_worker=true" with no
	// threshold is represented as ForkWorkerThreshold==-1 (always-on,
	// manual refork only).
	ForkWorkerThreshold int  `env:"CLUSTER_FORK_WORKER_THRESHOLD"`
	MoldWorker          bool `env:"CLUSTER_MOLD_WORKER"`
	PreloadApp          bool `env:"CLUSTER_PRELOAD_APP"`
	IdleTimeout         bool `env:"CLUSTER_IDLE_TIMEOUT"`
	RaiseOnSigterm      bool `env:"CLUSTER_RAISE_EXCEPTION_ON_SIGTERM"`
	SilenceSingleWorkerWarning bool `env:"CLUSTER_SILENCE_SINGLE_WORKER_WARNING"`
	Tag                 string `env:"CLUSTER_TAG"`

	// MetricsSnapshotPath, if set, is the base path each worker writes its
	// binary metrics sidecar to (suffixed with ".<index>"); see
	// internal/worker.Config.MetricsSnapshotPath.
	MetricsSnapshotPath string `env:"CLUSTER_METRICS_SNAPSHOT_PATH"`
}

// Defaults returns the baseline Options Load starts from before feeding
// environment overrides on top.
func Defaults() Options {
	return Options{
		Workers:               2,
		WorkerTimeout:         60,
		WorkerBootTimeout:     60,
		WorkerCheckInterval:   5,
		WorkerCullingStrategy: string(CullOldest),
	}
}

// Load feeds environment variables into a copy of Defaults() via
// golobby/config's feeder.Env.
func Load() (Options, error) {
	opts := Defaults()

	c, err := config.New(config.Options{
		Feeder: feeder.Env{},
		Struct: &opts,
	})
	if err != nil {
		return Options{}, fmt.Errorf("config: init: %w", err)
	}
	if err := c.Feed(); err != nil {
		return Options{}, fmt.Errorf("config: feed: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate rejects the mixed legacy/mold-worker configuration: pick one
// fork-pipe path per configuration.
func (o Options) Validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", o.Workers)
	}
	if o.WorkerCullingStrategy != string(CullOldest) && o.WorkerCullingStrategy != string(CullYoungest) {
		return fmt.Errorf("config: invalid worker_culling_strategy %q", o.WorkerCullingStrategy)
	}
	if o.ForkWorkerThreshold != 0 && !o.MoldWorker {
		return fmt.Errorf("config: fork_worker requires mold_worker to also be enabled (refusing mixed legacy/mold fork_pipe mode)")
	}
	return nil
}

func (o Options) WorkerTimeoutDuration() time.Duration {
	return time.Duration(o.WorkerTimeout) * time.Second
}

func (o Options) WorkerBootTimeoutDuration() time.Duration {
	return time.Duration(o.WorkerBootTimeout) * time.Second
}

func (o Options) WorkerCheckIntervalDuration() time.Duration {
	return time.Duration(o.WorkerCheckInterval) * time.Second
}

func (o Options) Culling() CullingStrategy {
	return CullingStrategy(o.WorkerCullingStrategy)
}

func (o Options) ForkWorkerEnabled() bool {
	return o.ForkWorkerThreshold != 0
}
