package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/overcast-io/overcast/internal/apiserver"
	"github.com/overcast-io/overcast/internal/config"
	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/infra/distributed"
	"github.com/overcast-io/overcast/internal/infra/embedded"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/orchestrator"
	"github.com/overcast-io/overcast/internal/registry"
	"github.com/overcast-io/overcast/internal/remediate"
	"github.com/overcast-io/overcast/internal/state"
	"github.com/overcast-io/overcast/pkg/logging"
)

func newServerCmd() *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the overcast server",
	}
	serverCmd.AddCommand(newServerStartCmd())
	serverCmd.AddCommand(newServerStopCmd())
	serverCmd.AddCommand(newServerStatusCmd())
	return serverCmd
}

func newServerStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the API server and operation workers",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func newServerStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running server via its pid file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return stopServer(cmd, cfg.GetPIDPath())
		},
	}
}

func newServerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a server is running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pid, err := readPID(cfg.GetPIDPath())
			if err != nil {
				cmd.Println("overcast is not running")
				return nil
			}
			if processAlive(pid) {
				cmd.Printf("overcast is running (pid %d)\n", pid)
				return nil
			}
			cmd.Printf("overcast is not running (stale pid file for pid %d)\n", pid)
			return nil
		},
	}
}

// components holds everything runServer assembles and must shut down
type components struct {
	api    *apiserver.APIServer
	queue  interfaces.OperationQueue
	pool   interfaces.WorkerPool
	bus    *events.Bus
	logger *logging.Logger
}

func runServer(cfg *config.ServerConfig) error {
	logger := logging.NewLogger("server")

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	if err := writePID(cfg.GetPIDPath()); err != nil {
		return err
	}
	defer removePID(cfg.GetPIDPath())

	comps.pool.Start()

	errCh := make(chan error, 1)
	go func() { errCh <- comps.api.Start() }()

	logger.Infof("overcast %s started on port %d (queue=%s)", version, cfg.Port, cfg.QueueType)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := comps.api.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("API shutdown: %v", err)
	}
	if err := comps.pool.Stop(shutdownCtx); err != nil {
		logger.Warnf("Worker shutdown: %v", err)
	}
	if err := comps.queue.Close(); err != nil {
		logger.Warnf("Queue close: %v", err)
	}
	comps.bus.Drain()

	logger.InfoMsg("Shutdown complete")
	return nil
}

//nolint:gocyclo // Linear assembly of every configured backend
func buildComponents(cfg *config.ServerConfig) (*components, error) {
	ctx := context.Background()
	logger := logging.NewLogger("bootstrap")

	store := embedded.NewStore()
	bus := events.NewBus()

	// Provider registry. Concrete cloud providers register here; without any,
	// every create fails fast with a configuration error.
	reg := registry.New()
	logger.WarnMsg("No cloud providers registered; create requests will be rejected until one is bound")

	var locker interfaces.InfrastructureLocker
	switch cfg.LockBackend {
	case config.LockBackendDynamoDB:
		ddbLocker, err := state.NewDynamoDBLocker(ctx, state.DynamoDBLockConfig{
			Table:    cfg.LockTable,
			Region:   cfg.LockRegion,
			Endpoint: cfg.LockEndpoint,
			TTL:      cfg.LockTTL,
		})
		if err != nil {
			return nil, err
		}
		locker = ddbLocker
	default:
		locker = orchestrator.NewLockArena()
	}

	var snapshots state.SnapshotStore
	switch cfg.SnapshotStore {
	case config.SnapshotStoreS3:
		s3Store, err := state.NewS3SnapshotStore(ctx, state.S3Config{
			Bucket:   cfg.SnapshotBucket,
			Region:   cfg.SnapshotRegion,
			Prefix:   cfg.SnapshotPrefix,
			Endpoint: cfg.SnapshotEndpoint,
		})
		if err != nil {
			return nil, err
		}
		snapshots = s3Store
	default:
		snapshots = state.NewMemorySnapshotStore()
	}
	bus.Subscribe(state.NewArchiver(store, snapshots).Handle)

	var remediation remediate.Trigger = remediate.NoopTrigger{}
	if cfg.RemediationEnabled {
		advisor := remediate.NewAdvisor(cfg.AdvisorBaseURL, cfg.AdvisorAPIKey, cfg.AdvisorModel)
		var runner *remediate.Runner
		if cfg.BastionHost != "" {
			r, err := remediate.NewRunner(remediate.RunnerConfig{
				Host:           cfg.BastionHost,
				Port:           cfg.BastionPort,
				User:           cfg.BastionUser,
				PrivateKeyPath: cfg.BastionKeyPath,
			})
			if err != nil {
				return nil, err
			}
			runner = r
		}
		remediation = remediate.NewRemediator(advisor, runner)
	}

	var queue interfaces.OperationQueue
	var svc *orchestrator.Service
	var pool interfaces.WorkerPool

	switch cfg.QueueType {
	case config.QueueTypeDistributed:
		dq, err := distributed.NewQueue(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		queue = dq

		svc, err = orchestrator.NewService(orchestrator.ServiceConfig{
			Store:       store,
			Registry:    reg,
			Queue:       queue,
			Locker:      locker,
			Events:      bus,
			Remediation: remediation,
		})
		if err != nil {
			return nil, err
		}

		worker, err := distributed.NewWorker(cfg.RedisURL, svc.ExecuteQueued, cfg.WorkerPoolSize)
		if err != nil {
			return nil, err
		}
		pool = worker

		if cfg.MirrorOperations {
			mirror, err := distributed.NewMirror(cfg.RedisURL, store)
			if err != nil {
				return nil, err
			}
			bus.Subscribe(mirror.Handle)
		}

	default:
		eq := embedded.NewQueue(cfg.QueueCapacity)
		queue = eq

		var err error
		svc, err = orchestrator.NewService(orchestrator.ServiceConfig{
			Store:       store,
			Registry:    reg,
			Queue:       queue,
			Locker:      locker,
			Events:      bus,
			Remediation: remediation,
		})
		if err != nil {
			return nil, err
		}

		pool, err = embedded.NewWorkerPool(embedded.WorkerPoolConfig{
			Queue:      eq,
			Store:      store,
			Executor:   svc.ExecuteQueued,
			MaxWorkers: cfg.WorkerPoolSize,
		})
		if err != nil {
			return nil, err
		}
	}

	api := apiserver.NewAPIServer(cfg, svc, queue)

	return &components{
		api:    api,
		queue:  queue,
		pool:   pool,
		bus:    bus,
		logger: logger,
	}, nil
}

func writePID(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func removePID(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

func readPID(path string) (int, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(string(payload))
	if err != nil {
		return 0, fmt.Errorf("corrupt pid file %s: %w", path, err)
	}
	return pid, nil
}
