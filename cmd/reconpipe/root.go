package main

import (
	"context"

	"github.com/spf13/cobra"

	"reconpipe/cmd/reconpipe/scan"
	"reconpipe/cmd/reconpipe/server"
)

func Execute() error {
	var rootCmd = &cobra.Command{
		Use:   "reconpipe",
		Short: "A staged reconnaissance pipeline for a target domain",
		Long:  `Reconpipe runs external recon tooling in a fixed stage sequence (discovery, probing, port scanning, content discovery, script monitoring) and stores deduplicated assets in postgres`,
	}

	rootCmd.AddCommand(scan.NewScanCommand())
	rootCmd.AddCommand(server.NewServerCommand())
	return rootCmd.ExecuteContext(context.Background())
}
