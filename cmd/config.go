// file: cmd/config.go
// version: 1.0.0
// guid: b61c6e98-ea72-433f-8c39-ad8a5c53890f

package cmd

import (
	"fmt"

	"github.com/jdfalk/album-enricher/internal/config"
	"github.com/spf13/cobra"
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.AppConfig.Marshal(false)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			var err error
			if path, err = config.DefaultConfigFile(); err != nil {
				return err
			}
		}
		if err := config.SaveConfigToFile(config.AppConfig, path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration written to", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
