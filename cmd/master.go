package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"github.com/parth-2005/os-project/api/rest"
	"github.com/parth-2005/os-project/internal/config"
	"github.com/parth-2005/os-project/internal/master"
	"github.com/parth-2005/os-project/pkg/logger"
)

var (
	masterAddress         string
	masterDispatchTimeout time.Duration
	masterOutputDir       string
	masterEagerSweep      bool
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the coordinator node",
	Long: `Start the master node: it accepts worker registrations, splits each
submitted batch across the alive workers, dispatches the shares concurrently,
and assembles one ordered result summary per submission.`,
	Example: `  # start with defaults
  osp master

  # custom listen address and dispatch timeout
  osp master --address :5000 --dispatch-timeout 45s

  # with a config file
  osp master --config config.yaml`,
	RunE: runMaster,
}

func init() {
	rootCmd.AddCommand(masterCmd)

	masterCmd.Flags().StringVar(&masterAddress, "address", ":5000", "HTTP listen address")
	masterCmd.Flags().DurationVar(&masterDispatchTimeout, "dispatch-timeout", master.DefaultDispatchTimeout, "per-worker dispatch call timeout")
	masterCmd.Flags().StringVar(&masterOutputDir, "output-dir", "processed_results", "root directory for materialized artifacts")
	masterCmd.Flags().BoolVar(&masterEagerSweep, "eager-sweep", true, "probe all workers before each partitioning pass")
}

func runMaster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("address") {
		cfg.Server.Address = masterAddress
	}
	if cmd.Flags().Changed("dispatch-timeout") {
		cfg.Master.DispatchTimeout = masterDispatchTimeout
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Master.OutputDir = masterOutputDir
	}
	if cmd.Flags().Changed("eager-sweep") {
		cfg.Master.EagerSweep = masterEagerSweep
	}

	initLogging(cfg)
	defer logger.Sync()

	client := &fasthttp.Client{
		MaxConnsPerHost:     256,
		MaxIdleConnDuration: 90 * time.Second,
	}

	registry := master.NewInMemoryWorkerRegistry(cfg.Master.MaxWorkers)
	prober := master.NewHTTPProber(client, cfg.Master.ProbeTimeout)
	materializer := master.NewMaterializer(cfg.Master.OutputDir)
	dispatcher := master.NewDispatcher(registry, materializer, client, cfg.Master.DispatchTimeout)

	server := rest.NewServer(registry, dispatcher, prober, &rest.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		EagerSweep:   cfg.Master.EagerSweep,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("master listening on %s\n", cfg.Server.Address)
	return server.StartWithContext(ctx)
}

func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger.Init(&logger.Config{
		Level:      level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	})
}
