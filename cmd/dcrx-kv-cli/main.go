package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dcrx-kv-cli",
	Short: "Administrative CLI for the dcrx-kv blob service",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML or YAML config file")
	rootCmd.AddCommand(databaseCmd)
	rootCmd.AddCommand(serverCmd)
}
