package scan

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"reconpipe/internal/config"
	"reconpipe/internal/dao"
	"reconpipe/internal/database"
	"reconpipe/internal/models"
	"reconpipe/internal/notification"
	"reconpipe/internal/services"
)

type ScanOpts struct {
	Domain     string
	ScanType   string
	Tools      string
	ConfigPath string
	Output     string
	Verbose    bool
}

func NewScanCommand() *cobra.Command {
	scanOpts := &ScanOpts{}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan against a domain and wait for it to finish",
		Long:  `Run the staged recon pipeline against a single domain, showing live progress; Ctrl-C cancels the scan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if scanOpts.Verbose {
				log.SetLevel(log.DebugLevel)
			}

			pipelineCfg, err := config.LoadPipelineConfig(scanOpts.ConfigPath)
			if err != nil {
				return err
			}

			dbCfg := config.LoadConfig()
			database.InitDB(dbCfg)

			scanDao := dao.NewScanDAO(database.DB)
			assetDao := dao.NewAssetDAO(database.DB)
			notifier := notification.NewFromEnv()
			scanService := services.NewScanService(scanDao, assetDao, pipelineCfg, notifier)

			id, err := scanService.StartScan(&models.Scan{
				Domain:   scanOpts.Domain,
				ScanType: scanOpts.ScanType,
				ToolList: scanOpts.Tools,
			})
			if err != nil {
				return err
			}
			log.Infof("Scan %s started", id)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				log.Info("Cancelling scan")
				if err := scanService.CancelScan(id); err != nil {
					log.Errorf("Cancel failed: %v", err)
				}
			}()

			if err := waitForScan(scanService, id); err != nil {
				return err
			}

			if scanOpts.Output != "" {
				return writeAssetReport(scanService, id, scanOpts.Output)
			}
			return nil
		},
	}

	scanCmd.Flags().StringVarP(&scanOpts.Domain, "domain", "d", "", "Target domain to scan (required)")
	scanCmd.Flags().StringVarP(&scanOpts.ScanType, "type", "t", models.ScanTypeFull, "Scan type: full, subdomain or probing")
	scanCmd.Flags().StringVar(&scanOpts.Tools, "tools", "", "Comma-separated discovery tools to use (default: all configured)")
	scanCmd.Flags().StringVarP(&scanOpts.ConfigPath, "config", "c", "./config", "Directory holding pipeline.yaml")
	scanCmd.Flags().StringVarP(&scanOpts.Output, "output", "o", "", "Write the recorded assets to this YAML file when the scan completes")
	scanCmd.Flags().BoolVarP(&scanOpts.Verbose, "verbose", "v", false, "Enable verbose logging")
	scanCmd.MarkFlagRequired("domain")

	return scanCmd
}

// waitForScan polls the scan status and renders it as a progress bar until
// the scan reaches a terminal state.
func waitForScan(scanService services.ScanServiceMethods, id string) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("Starting scan..."),
	)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		scan, err := scanService.GetScanByUUID(id)
		if err != nil {
			return err
		}

		bar.Set(scan.Progress)
		if scan.Message != "" {
			bar.Describe(scan.Message)
		}

		if !scan.IsTerminal() {
			continue
		}

		fmt.Println()
		if scan.Status == models.StatusFailed {
			return fmt.Errorf("scan failed: %s", scan.ErrorMessage)
		}
		log.Info(scan.Message)
		return nil
	}
	return nil
}

func writeAssetReport(scanService services.ScanServiceMethods, id, path string) error {
	report, err := scanService.GetAssets(id)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Infof("Asset report written to %s", path)
	return nil
}
