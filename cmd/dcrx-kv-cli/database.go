package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/storage/metadata"
	"github.com/scorbettUM/dcrx-kv/internal/storage/userstore"
)

var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Bootstrap the metadata and user schemas, or tear down the metadata schema",
}

var databaseInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the blobs and users tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := common.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger := common.NewLogger(config.Logging.Level)
		ctx := context.Background()

		md, err := metadata.New(&config.Database, config.Storage.PoolSize, logger)
		if err != nil {
			return fmt.Errorf("connect metadata store: %w", err)
		}
		defer md.Close()
		if err := md.Init(ctx); err != nil {
			return fmt.Errorf("init metadata schema: %w", err)
		}

		users, err := userstore.New(&config.Database, config.Storage.PoolSize, logger)
		if err != nil {
			return fmt.Errorf("connect user store: %w", err)
		}
		if err := users.Init(ctx); err != nil {
			return fmt.Errorf("init user schema: %w", err)
		}

		fmt.Println("database initialized")
		return nil
	},
}

var databaseDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the blobs table",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := common.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger := common.NewLogger(config.Logging.Level)
		ctx := context.Background()

		md, err := metadata.New(&config.Database, config.Storage.PoolSize, logger)
		if err != nil {
			return fmt.Errorf("connect metadata store: %w", err)
		}
		defer md.Close()
		if err := md.Drop(ctx); err != nil {
			return fmt.Errorf("drop metadata schema: %w", err)
		}

		fmt.Println("database dropped")
		return nil
	},
}

func init() {
	databaseCmd.AddCommand(databaseInitCmd)
	databaseCmd.AddCommand(databaseDropCmd)
}
