package cmd

import (
	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/constants"
	"github.com/spf13/cobra"
)

// newStageCmd returns a command that runs one pipeline stage.
func newStageCmd(stage string, use string, short string, long string) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()
			res, err := actions.RunStage(ctx, cfg, stage)
			if res != nil && outputFormat != "" { // if the caller wants the result printed...
				if e := actions.WriteOutput(cmd.OutOrStdout(), res, outputFormat); e != nil && err == nil {
					err = e
				}
			}
			return err
		},
	}
	c.Flags().SortFlags = false
	switches.addSettingFlags(c, pipelineFlags...)
	switches.addFlag(c, &outputFormat, "output", "", false, "")
	c.SilenceUsage = true
	return c
}

func init() {
	rootCmd.AddCommand(
		newStageCmd(constants.StageIngest, "ingest",
			"Extract rows changed since the last batch into the ingestion bucket",
			`Extract rows whose delta column is newer than the ingestion bucket watermark from each
source table, writing one CSV file per table into a new timestamped batch. Tables without
changes produce no file. A table that fails does not stop the others.`),
		newStageCmd(constants.StageTransform, "transform",
			"Reshape new ingestion batches into star schema batches in the processed bucket",
			`Reshape every ingestion batch newer than the processed bucket watermark into star
schema tables, oldest first, keeping the batch id.`),
		newStageCmd(constants.StageLoad, "load",
			"Merge processed batches missing from the batch cache into the warehouse",
			`Merge every processed batch that is not recorded in the batch cache into the warehouse,
oldest first, then record it. Rows are inserted when their key is new and updated when
their values differ. Loading stops at the first batch that fails.`),
		newStageCmd(constants.StageAll, "run",
			"Run ingest, transform and load in order",
			`Run ingest, transform and load in order. Tables that fail to ingest are reported
after the load completes.`),
	)
}
