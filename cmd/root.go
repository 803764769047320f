package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current version number.
const Version = "0.1.0"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:     "osp",
	Short:   "Distributed file-processing cluster",
	Long:    `osp coordinates a pool of worker nodes that process batches of files (grayscale conversion, sentiment analysis, embeddings, OCR, audio features, document parsing) on behalf of a central master.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
