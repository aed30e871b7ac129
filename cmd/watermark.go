package cmd

import (
	"fmt"

	"github.com/relloyd/totes/actions"
	"github.com/spf13/cobra"
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark <ingestion|processed>",
	Short: "Print the newest batch id in a bucket",
	Long: `Print the newest batch id in the ingestion or processed bucket.
An empty bucket has the watermark 1970-01-01T00:00:00.000000.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := actions.BucketRole(args[0])
		if err != nil {
			return err
		}
		cfg, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		w, err := actions.GetWatermark(cfg, role)
		if err != nil {
			return err
		}
		if outputFormat == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), w.Watermark)
			return err
		}
		return actions.WriteOutput(cmd.OutOrStdout(), w, outputFormat)
	},
}

func init() {
	rootCmd.AddCommand(watermarkCmd)
	watermarkCmd.Flags().SortFlags = false
	switches.addSettingFlags(watermarkCmd, pipelineFlags...)
	switches.addFlag(watermarkCmd, &outputFormat, "output", "", false, "")
	watermarkCmd.SilenceUsage = true
}
