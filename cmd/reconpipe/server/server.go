package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"reconpipe/api/routes"
	"reconpipe/internal/config"
	"reconpipe/internal/database"
)

type ServerOpts struct {
	Port       int
	ConfigPath string
}

func NewServerCommand() *cobra.Command {
	serverOpts := &ServerOpts{}

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the reconpipe API server",
		Long:  `Start the reconpipe server to submit, monitor and cancel scans over HTTP`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			pipelineCfg, err := config.LoadPipelineConfig(serverOpts.ConfigPath)
			if err != nil {
				return err
			}

			dbCfg := config.LoadConfig()
			database.InitDB(dbCfg)

			router := routes.InitRouter(database.DB, pipelineCfg)
			return router.Run(fmt.Sprintf(":%d", serverOpts.Port))
		},
	}

	serverCmd.Flags().IntVarP(&serverOpts.Port, "port", "p", 8080, "Port to run the server on")
	serverCmd.Flags().StringVarP(&serverOpts.ConfigPath, "config", "c", "./config", "Directory holding pipeline.yaml")

	return serverCmd
}
