package configcmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/procpool/internal/config"
	"github.com/aryankumar/procpool/internal/output"
)

// newViewCmd creates the config view command
func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the effective settings",
		Long: `Show the settings a run would use: the defaults of the config file and
environment, with the profile selected by --profile laid over them.
Command-line flags of 'procpool run' still override these.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := loadManager()
			if err != nil {
				return err
			}

			settings, err := manager.Resolve(viper.GetString("profile"))
			if err != nil {
				return err
			}

			return newFormatter().Format(cmd.OutOrStdout(), SettingsRows(settings))
		},
	}

	return cmd
}

// SettingsRows lists settings as key/value rows
func SettingsRows(s config.Settings) output.Rows {
	workers := strconv.Itoa(s.Workers)
	if s.Workers == 0 {
		workers = "auto"
	}

	return output.Rows{
		Headers: []string{"KEY", "VALUE"},
		Rows: [][]string{
			{"workers", workers},
			{"timeout", s.Timeout.String()},
			{"startTimeout", s.StartTimeout.String()},
			{"policy", s.Policy},
			{"outputFormat", s.OutputFormat},
			{"noColor", strconv.FormatBool(s.NoColor)},
		},
	}
}

func newFormatter() output.Formatter {
	return output.NewFormatter(output.Format(viper.GetString("output")),
		output.WithNoColor(viper.GetBool("no-color")),
	)
}
