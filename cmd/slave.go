package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parth-2005/os-project/internal/slave"
	"github.com/parth-2005/os-project/pkg/logger"
)

var (
	slaveMasterURL     string
	slaveAdvertiseHost string
	slavePort          int
)

var slaveCmd = &cobra.Command{
	Use:   "slave",
	Short: "Run a worker node",
	Long: `Start a worker node: it registers with the master and serves the
/get_task and /check_status endpoints. Processing routines are provided by
the build that links them in; kinds without a registered processor are
rejected at the task boundary.`,
	Example: `  # register with a local master
  osp slave --master http://localhost:5000 --port 3000

  # advertise an externally reachable host
  osp slave --master http://master:5000 --host 10.0.0.7 --port 3000`,
	RunE: runSlave,
}

func init() {
	rootCmd.AddCommand(slaveCmd)

	slaveCmd.Flags().StringVar(&slaveMasterURL, "master", "http://localhost:5000", "master base URL")
	slaveCmd.Flags().StringVar(&slaveAdvertiseHost, "host", "localhost", "host to advertise to the master")
	slaveCmd.Flags().IntVar(&slavePort, "port", 3000, "port to listen on and advertise")
}

func runSlave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("master") {
		cfg.Slave.MasterURL = slaveMasterURL
	}
	if cmd.Flags().Changed("host") {
		cfg.Slave.AdvertiseHost = slaveAdvertiseHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Slave.Port = slavePort
	}
	if cfg.Slave.AdvertiseHost == "" {
		cfg.Slave.AdvertiseHost = "localhost"
	}

	initLogging(cfg)
	defer logger.Sync()

	s := slave.New(&slave.Config{
		MasterURL:          cfg.Slave.MasterURL,
		AdvertiseHost:      cfg.Slave.AdvertiseHost,
		Port:               cfg.Slave.Port,
		ReregisterInterval: cfg.Slave.ReregisterInterval,
		RegisterTimeout:    cfg.Slave.RegisterTimeout,
	}, processorRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("slave listening on :%d\n", cfg.Slave.Port)
	return s.Run(ctx)
}

// processorRegistry assembles the processors linked into this build. The
// routines themselves live behind the slave.Processor boundary and are
// supplied by deployments.
func processorRegistry() *slave.ProcessorRegistry {
	return slave.NewProcessorRegistry()
}
