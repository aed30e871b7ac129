package cmd

import (
	"github.com/relloyd/totes/actions"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service that triggers pipeline stages",
	Long: `Start a web service that triggers pipeline stages, where:

- POST /ingest, /transform, /load and /run start a stage and respond with its statistics
- GET /watermark/{ingestion|processed} and GET /cache report progress
- POST /stop shuts the server down

Only one stage runs at a time; other triggers receive 409 Conflict.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		log := newLogger(s)
		res, err := newResources(log, s)
		if err != nil {
			return err
		}
		return actions.RunWebServer(&actions.WebServerConfig{
			Log:  log,
			Addr: s.ListenAddr,
			NewPipeline: func() *actions.PipelineConfig {
				return &actions.PipelineConfig{Log: log.WithRunID(xid.New().String()), Settings: s, Resources: res}
			},
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	switches.addSettingFlags(serveCmd, append(pipelineFlags, "listen-addr")...)
	serveCmd.SilenceUsage = true
}
