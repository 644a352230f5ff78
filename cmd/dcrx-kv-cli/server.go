package main

import (
	"github.com/spf13/cobra"

	"github.com/scorbettUM/dcrx-kv/internal/app"
	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the blob service's HTTP server",
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(configPath)
		if err != nil {
			return err
		}
		if err := a.Start(); err != nil {
			return err
		}
		defer a.Close()

		common.PrintBanner(a.Config, a.Logger)

		srv := server.New(a.Config.Server.Host, a.Config.Server.Port, a.Queue, a.Users, a.Auth, a.Config.Auth.GetTokenExpiry(), a.Logger)
		return srv.Start()
	},
}

func init() {
	serverCmd.AddCommand(serverStartCmd)
}
