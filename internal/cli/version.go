package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/procpool/internal/output"
	"github.com/aryankumar/procpool/pkg/version"
)

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display detailed version information for the procpool CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd, short)
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print the version on one line")

	return cmd
}

func runVersion(cmd *cobra.Command, short bool) error {
	info := version.Get()
	w := cmd.OutOrStdout()

	if short {
		fmt.Fprintln(w, info.Short())
		return nil
	}

	// Only an explicit --output changes the format, not the configured default
	outputFormat, _ := cmd.Flags().GetString("output")
	switch outputFormat {
	case "json":
		data, err := info.JSON()
		if err != nil {
			return fmt.Errorf("failed to marshal version info to JSON: %w", err)
		}
		fmt.Fprintln(w, data)
		return nil
	case "yaml":
		data, err := info.YAML()
		if err != nil {
			return fmt.Errorf("failed to marshal version info to YAML: %w", err)
		}
		fmt.Fprint(w, data)
		return nil
	case "table":
		formatter := output.NewFormatter(output.FormatTable, output.WithNoColor(viper.GetBool("no-color")))
		return formatter.Format(w, versionRows(info))
	default:
		// Default to human-readable format
		fmt.Fprintln(w, info.String())
		return nil
	}
}

func versionRows(info version.Info) output.Rows {
	return output.Rows{
		Headers: []string{"COMPONENT", "VALUE"},
		Rows: [][]string{
			{"Version", info.Version},
			{"Commit", info.Commit},
			{"Build Time", info.BuildTime},
			{"Go Version", info.GoVersion},
			{"Platform", info.Platform},
			{"CPUs", strconv.Itoa(info.CPUs)},
		},
	}
}
