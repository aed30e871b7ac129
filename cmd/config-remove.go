package cmd

import (
	"fmt"

	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/config"
	"github.com/spf13/cobra"
)

var configRemoveCfg = actions.ConfigRemoveConfig{}

var configRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm"},
	Short:   "Remove a default setting value",
	Long:    fmt.Sprintf("Remove a default setting value from config file %q", config.Main.FullPath),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configRemoveCfg.ConfigFile = config.Main
		configRemoveCfg.Out = cmd.OutOrStdout()
		return actions.RunConfigRemove(&configRemoveCfg)
	},
}

func init() {
	configCmd.AddCommand(configRemoveCmd)
	switches.addFlag(configRemoveCmd, &configRemoveCfg.Key, "key", "", true, "")
	configRemoveCmd.SilenceUsage = true
}
