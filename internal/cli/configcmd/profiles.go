package configcmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/procpool/internal/config"
	"github.com/aryankumar/procpool/internal/output"
)

// newProfilesCmd creates the config profiles command
func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Short:   "List the settings profiles",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := loadManager()
			if err != nil {
				return err
			}

			rows := ProfileRows(manager, viper.GetString("profile"))
			if len(rows.Rows) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No profiles configured")
				return nil
			}
			return newFormatter().Format(cmd.OutOrStdout(), rows)
		},
	}

	return cmd
}

// ProfileRows lists the profiles of manager, marking the selected one
func ProfileRows(manager *config.Manager, selected string) output.Rows {
	rows := output.Rows{Headers: []string{"CURRENT", "NAME", "WORKERS", "TIMEOUT", "POLICY", "DESCRIPTION"}}

	for _, name := range manager.ProfileNames() {
		p, _ := manager.GetProfile(name)

		current := ""
		if name == selected {
			current = "*"
		}
		workers := ""
		if p.Workers != 0 {
			workers = strconv.Itoa(p.Workers)
		}
		timeout := ""
		if p.Timeout != 0 {
			timeout = p.Timeout.String()
		}

		rows.Rows = append(rows.Rows, []string{current, name, workers, timeout, p.Policy, p.Description})
	}

	return rows
}

// newSetProfileCmd creates the config set-profile command
func newSetProfileCmd() *cobra.Command {
	var profile config.Profile

	cmd := &cobra.Command{
		Use:   "set-profile NAME",
		Short: "Add or update a settings profile",
		Long: `Add or update a named settings profile in the config file.

Only the given flags are stored; everything else falls back to the defaults
when the profile is selected.`,
		Example: `  # A profile for slow, flaky jobs
  procpool config set-profile batch --workers 8 --timeout 1h --policy log-and-continue

  # Use it
  procpool run --profile batch crunch --args-file jobs.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := profile.Validate(); err != nil {
				return err
			}

			manager, err := loadManager()
			if err != nil {
				return err
			}

			manager.SetProfile(args[0], profile)
			if err := manager.Save(); err != nil {
				return err
			}

			slog.Debug("saved profile", "name", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %s saved\n", color.New(color.FgCyan).Sprint(args[0]))
			return nil
		},
	}

	cmd.Flags().IntVarP(&profile.Workers, "workers", "p", 0, "number of worker processes")
	cmd.Flags().DurationVar(&profile.Timeout, "timeout", 0, "batch timeout")
	cmd.Flags().DurationVar(&profile.StartTimeout, "start-timeout", 0, "worker start timeout")
	cmd.Flags().StringVar(&profile.Policy, "policy", "", "failure policy (propagate, log-and-continue)")
	cmd.Flags().StringVar(&profile.OutputFormat, "format", "", "output format (table, json, yaml)")
	cmd.Flags().BoolVar(&profile.NoColor, "plain", false, "disable colored output")
	cmd.Flags().StringVar(&profile.Description, "description", "", "free-form description")

	return cmd
}

// newRemoveProfileCmd creates the config remove-profile command
func newRemoveProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove-profile NAME",
		Short:   "Remove a settings profile",
		Aliases: []string{"rm-profile"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := loadManager()
			if err != nil {
				return err
			}

			if _, ok := manager.GetProfile(args[0]); !ok {
				return fmt.Errorf("profile %q not found", args[0])
			}

			manager.RemoveProfile(args[0])
			if err := manager.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Profile %s removed\n", args[0])
			return nil
		},
	}

	return cmd
}
