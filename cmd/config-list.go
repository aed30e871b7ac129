package cmd

import (
	"fmt"

	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/config"
	"github.com/spf13/cobra"
)

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List default setting values",
	Long:  fmt.Sprintf("List the default setting values saved in config file %q", config.Main.FullPath),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunConfigList(config.Main, cmd.OutOrStdout())
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configListCmd.SilenceUsage = true
}
