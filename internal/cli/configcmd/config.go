// Package configcmd implements 'procpool config', which inspects and edits the settings
// profiles of the config file.
package configcmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/procpool/internal/config"
)

// NewConfigCmd creates the config management command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit procpool configuration",
		Long: `Inspect and edit the procpool configuration file.

The file holds default settings for every run and named profiles that
override them. Select a profile with --profile on any command.`,
	}

	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newProfilesCmd())
	cmd.AddCommand(newSetProfileCmd())
	cmd.AddCommand(newRemoveProfileCmd())

	return cmd
}

// loadManager loads the config file selected with --config
func loadManager() (*config.Manager, error) {
	manager := config.NewManager(viper.GetString("config"))
	if _, err := manager.Load(); err != nil {
		return nil, err
	}
	return manager, nil
}
