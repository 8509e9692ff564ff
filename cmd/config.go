package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as JSON",
	Long: `Print the configuration after environment, .env and --config overlays.
Credentials are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// applyConfigFile overlays the JSON file at path onto cfg
func applyConfigFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return cfg.LoadFromJSON(data)
}
