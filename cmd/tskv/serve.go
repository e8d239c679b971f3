package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/kartikbazzad/tskv/internal/config"
	"github.com/kartikbazzad/tskv/internal/coverage"
	"github.com/kartikbazzad/tskv/internal/ipc"
	"github.com/kartikbazzad/tskv/internal/logger"
	"github.com/kartikbazzad/tskv/internal/metrics"
	"github.com/kartikbazzad/tskv/internal/queue"
	"github.com/kartikbazzad/tskv/internal/ring"
	"github.com/kartikbazzad/tskv/internal/storage"
	"github.com/kartikbazzad/tskv/internal/table"
	"github.com/kartikbazzad/tskv/internal/worker"
)

var (
	serveSocket  string
	serveStorage string
	serveDebug   bool
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run a tskv node",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if serveSocket != "" {
			cfg.IPC.SocketPath = serveSocket
		}
		if serveStorage != "" {
			cfg.Storage.Path = serveStorage
		}

		log := logger.Default()
		if serveDebug {
			log.SetLevel(logger.LevelDebug)
		}
		log.Info("starting tskv %s as %s", version, cfg.NodeName)

		engine, err := storage.OpenSQLite(cfg.Storage.Path, cfg.Storage.FetchRetries, log)
		if err != nil {
			return err
		}
		defer engine.Close()

		members := cfg.Ring.Members
		if len(members) == 0 {
			members = []string{cfg.NodeName}
		}
		r := ring.New(cfg.Ring.Partitions, members)
		planner := coverage.New(r)

		exporter := metrics.NewExporter()
		q := queue.New(cfg.Query.QueueDepth)

		fanout, err := ants.NewPool(64, ants.WithPanicHandler(func(v any) {
			log.Error("sub-query dispatch panic: %v", v)
		}))
		if err != nil {
			return err
		}
		defer fanout.Release()

		dispatch := worker.NewStorageDispatcher(planner, engine, cfg.Ring.NVal,
			cfg.Query.SubQueryTimeout, fanout, log)
		pool := worker.NewPool(cfg.Query, q, dispatch, log, exporter)
		pool.Start()
		defer pool.Stop()

		reg := table.NewRegistry(cfg.Table.HelperCacheLen, log)
		handler := ipc.NewHandler(cfg, reg, q, engine, log, exporter)
		if err := handler.RestoreTables(); err != nil {
			return err
		}

		server := ipc.NewServer(handler, log)
		if err := server.Listen(cfg.IPC.SocketPath, tcpPort(cfg)); err != nil {
			return err
		}
		defer server.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "unix socket path")
	serveCmd.Flags().StringVar(&serveStorage, "storage", "", "storage database path")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable debug logging")
}

func tcpPort(cfg *config.Config) int {
	if cfg.IPC.EnableTCP {
		return cfg.IPC.TCPPort
	}
	return 0
}
