package cmd

import (
	"fmt"

	"github.com/relloyd/totes/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure default setting values",
	Long: fmt.Sprintf(`Configure default setting values where:

- Values are stored in file %q
- Environment variables and flags take precedence over them
`, config.Main.FullPath),
}

func init() {
	rootCmd.AddCommand(configCmd)
}
