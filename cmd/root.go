package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/config"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/logger"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2023-08-01T09:00+0000"
	logLevel         string
	stackDumpOnPanic bool
	outputFormat     string
)

var rootCmd = &cobra.Command{
	Use:   "totes",
	Short: "Incremental extract, transform and load of the totesys database into a star schema warehouse",
	Long: `totes copies rows changed since the last run from the operational database into
timestamped batches in the ingestion bucket, reshapes them into star schema batches in the
processed bucket, and merges each processed batch into the warehouse exactly once.

Settings are read from TOTES_* environment variables, a .env file and the config file
managed by "totes config". Flags take precedence over all of them.`,
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	switches.addFlagToSet(rootCmd.PersistentFlags(), &logLevel, "log-level", "", "")
	switches.addFlagToSet(rootCmd.PersistentFlags(), &stackDumpOnPanic, "print-stack", "false", "")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if lambdaMode { // if we should handle lambda execution...
			lambda.Start(func(ctx context.Context, event json.RawMessage) error {
				return execute12FactorMode(ctx, actions.RunStage)
			})
		} else {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			if err := execute12FactorMode(ctx, actions.RunStage); err != nil {
				// execute12FactorMode logs the error.
				stop()
				os.Exit(1)
			}
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}

// newResources is replaced in tests.
var newResources = func(log logger.Logger, s *config.Settings) (actions.Resources, error) {
	return actions.NewAwsResources(log, s)
}

// loadSettings applies flags set on cmd over the environment and config file.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	if err := applySettingFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return config.LoadSettings(config.Main)
}

func newLogger(s *config.Settings) *logger.LoggerImpl {
	return logger.NewLogger(constants.ServiceName, s.LogLevel, s.StackDump)
}

// newPipeline builds the config for one invocation with its own run id.
func newPipeline(cmd *cobra.Command) (*actions.PipelineConfig, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(s).WithRunID(xid.New().String())
	res, err := newResources(log, s)
	if err != nil {
		return nil, err
	}
	return &actions.PipelineConfig{Log: log, Settings: s, Resources: res}, nil
}

// commandContext returns a context that is cancelled on SIGINT.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
