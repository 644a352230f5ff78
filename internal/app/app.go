// Package app wires configuration, storage, and services into a single
// runnable unit, shared by cmd/dcrx-kv-server and cmd/dcrx-kv-cli.
package app

import (
	"context"
	"os"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/services/auth"
	"github.com/scorbettUM/dcrx-kv/internal/services/jobqueue"
	"github.com/scorbettUM/dcrx-kv/internal/services/monitor"
	"github.com/scorbettUM/dcrx-kv/internal/storage/blobstore"
	"github.com/scorbettUM/dcrx-kv/internal/storage/metadata"
	"github.com/scorbettUM/dcrx-kv/internal/storage/userstore"
)

// App holds every initialized collaborator the HTTP server and admin CLI
// need.
type App struct {
	Config   *common.Config
	Logger   *common.Logger
	Blobs    interfaces.BlobStore
	Metadata interfaces.MetadataStore
	Users    interfaces.UserStore
	Monitor  *monitor.Monitor
	Auth     *auth.Service
	Queue    *jobqueue.Queue

	userStore *userstore.Store
}

// New loads configPath (falling back to defaults and env overrides) and
// constructs every collaborator, but does not start any background
// goroutines — call Start for that.
func New(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("DCRX_KV_CONFIG")
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := common.NewLogger(config.Logging.Level)

	metadataStore, err := metadata.New(&config.Database, config.Storage.PoolSize, logger)
	if err != nil {
		return nil, err
	}

	userStore, err := userstore.New(&config.Database, config.Storage.PoolSize, logger)
	if err != nil {
		return nil, err
	}

	blobs := blobstore.New(logger)

	mon := monitor.New(config.Monitor.GetSampleInterval(), logger)

	authSvc := auth.New(config.Auth.SecretKey, config.Auth.GetTokenExpiry())

	queue := jobqueue.New(jobqueue.Config{
		MaxJobs:        config.Storage.MaxJobs,
		MaxPendingJobs: config.Storage.MaxPendingJobs,
		MaxJobWorkers:  config.Storage.MaxJobWorkers,
		BlobMaxAge:     config.Storage.GetBlobMaxAge(),
		PruneInterval:  config.Storage.GetPruneInterval(),
		MaxPendingWait: config.Storage.GetMaxPendingWait(),
	}, blobs, metadataStore, mon, config.Monitor.MaxMemoryPercentUsage, logger)

	return &App{
		Config:    config,
		Logger:    logger,
		Blobs:     blobs,
		Metadata:  metadataStore,
		Users:     userStore,
		Monitor:   mon,
		Auth:      authSvc,
		Queue:     queue,
		userStore: userStore,
	}, nil
}

// Start initializes the metadata/user schemas and launches the resource
// monitor and the queue's pruner.
func (a *App) Start() error {
	ctx := context.Background()
	if err := a.Metadata.Init(ctx); err != nil {
		return err
	}
	if err := a.userStore.Init(ctx); err != nil {
		return err
	}
	a.Monitor.Start()
	a.Queue.Start()
	return nil
}

// Close performs an orderly shutdown: stop the monitor, close the queue
// (which itself closes the blob store), then close the metadata and user
// stores.
func (a *App) Close() {
	a.Monitor.Stop()
	if err := a.Queue.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("app: queue close returned error")
	}
	if err := a.Metadata.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("app: metadata store close returned error")
	}
	if err := a.userStore.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("app: user store close returned error")
	}
}
