// Command cluster is the master/worker entrypoint: re-exec'd with
// --cluster-child it becomes a worker (or mold) and drives internal/worker;
// otherwise it boots the master via internal/supervisor. The request-serving
// engine itself is out of scope (see internal/engine); this binary wires in
// internal/engine.Fake purely so the cluster is runnable end-to-end.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/clustersup/cluster/internal/config"
	"github.com/clustersup/cluster/internal/engine"
	"github.com/clustersup/cluster/internal/logsetup"
	"github.com/clustersup/cluster/internal/pidfile"
	"github.com/clustersup/cluster/internal/proctitle"
	"github.com/clustersup/cluster/internal/spawn"
	"github.com/clustersup/cluster/internal/supervisor"
	"github.com/clustersup/cluster/internal/worker"
)

const processName = "cluster"

func main() {
	isChild := flag.Bool("cluster-child", false, "internal: re-exec flag marking a spawned worker/mold")
	role := flag.String("role", "worker", "internal: child role (worker)")
	index := flag.Int("index", 0, "internal: child worker index")
	phase := flag.Int("phase", 0, "internal: child generation phase")
	tag := flag.String("tag", "", "process title tag")
	pidfilePath := flag.String("pidfile", "", "write the master pid to this path")
	flag.Parse()

	if *isChild {
		os.Exit(runChild(*role, *index, *phase, *tag))
	}
	os.Exit(runMaster(*pidfilePath, *tag))
}

func runChild(role string, index, phase int, tag string) int {
	log := logsetup.New(role, index)
	proctitle.Set(proctitle.Build(processName, role, index, syscall.Getppid(), tag))

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("child configuration failed, using defaults")
		cfg = config.Defaults()
	}
	pipes := spawn.Inherit()

	snapshotPath := ""
	if cfg.MetricsSnapshotPath != "" {
		snapshotPath = cfg.MetricsSnapshotPath + "." + strconv.Itoa(index)
	}

	w := worker.New(worker.Config{
		Index:               index,
		Phase:               phase,
		Tag:                 tag,
		CheckInterval:       cfg.WorkerCheckIntervalDuration(),
		MoldWorkerEnabled:   cfg.MoldWorker,
		MetricsSnapshotPath: snapshotPath,
	}, pipes, engine.NewFake(engine.Metrics{}), worker.Hooks{}, log)

	return w.Run()
}

func runMaster(pidfilePath, tag string) int {
	log := logsetup.New("master", 0)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("configuration failed")
		return 1
	}
	if tag != "" {
		cfg.Tag = tag
	}

	proctitle.Set(proctitle.Build(processName, "master", 0, syscall.Getpid(), cfg.Tag))

	pf, err := pidfile.Write(pidfilePath, syscall.Getpid())
	if err != nil {
		log.Error().Err(err).Msg("failed to write pidfile")
		return 1
	}
	defer pf.Remove()

	sup, err := supervisor.New(supervisor.Options{
		Config:   cfg,
		Log:      log,
		AppReady: true, // the bundled engine.Fake needs no preload step
		Hooks: supervisor.Hooks{
			OnBooted: func() {
				log.Info().Msg("cluster booted")
			},
			OnStopped: func() {
				log.Info().Msg("cluster stopped")
			},
		},
	})
	if err != nil {
		if errors.Is(err, supervisor.ErrConfigFatal) {
			fmt.Fprintln(os.Stderr, "cluster: application not configured and preload_app is disabled")
		}
		log.Error().Err(err).Msg("failed to start supervisor")
		return 1
	}

	if !cfg.SilenceSingleWorkerWarning && cfg.Workers == 1 {
		log.Warn().Msg("running with a single worker; consider setting CLUSTER_SILENCE_SINGLE_WORKER_WARNING=true to hide this")
	}

	return sup.Run()
}
