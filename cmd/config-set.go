package cmd

import (
	"fmt"

	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/config"
	"github.com/spf13/cobra"
)

var configSetCfg = actions.ConfigSetConfig{}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Add or set a default setting value",
	Long:  fmt.Sprintf("Add a default setting value to config file %q", config.Main.FullPath),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configSetCfg.ConfigFile = config.Main
		configSetCfg.Out = cmd.OutOrStdout()
		return actions.RunConfigSet(&configSetCfg)
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configSetCmd.Flags().SortFlags = false
	switches.addFlag(configSetCmd, &configSetCfg.Key, "key", "", true, "")
	switches.addFlag(configSetCmd, &configSetCfg.Value, "value", "", true, "")
	switches.addFlag(configSetCmd, &configSetCfg.Force, "force", "false", false, "")
	configSetCmd.SilenceUsage = true
}
