package cmd

import (
	"fmt"

	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/constants"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or update the batch cache",
	Long: fmt.Sprintf(`Inspect or update the batch cache, where:

- The cache is object %q in the processed bucket
- It lists the batches already merged into the warehouse`, constants.CacheKey),
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print merged and pending batch ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		c, err := actions.ListCache(cfg)
		if err != nil {
			return err
		}
		if outputFormat == "" {
			for _, id := range c.Processed {
				fmt.Fprintln(cmd.OutOrStdout(), "processed", id)
			}
			for _, id := range c.Pending {
				fmt.Fprintln(cmd.OutOrStdout(), "pending", id)
			}
			return nil
		}
		return actions.WriteOutput(cmd.OutOrStdout(), c, outputFormat)
	},
}

var cacheMarkCmd = &cobra.Command{
	Use:   "mark <batch-id>...",
	Short: "Record batches as merged without loading them",
	Long: `Record batches as merged without loading them.
Use this to skip a batch that can never be loaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		return actions.MarkCache(cfg, args)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheMarkCmd)
	for _, c := range []*cobra.Command{cacheListCmd, cacheMarkCmd} {
		c.Flags().SortFlags = false
		switches.addSettingFlags(c, pipelineFlags...)
		c.SilenceUsage = true
	}
	switches.addFlag(cacheListCmd, &outputFormat, "output", "", false, "")
}
