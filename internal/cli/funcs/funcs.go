package funcs

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/procpool/internal/output"
	"github.com/aryankumar/procpool/internal/registry"
)

// NewFuncsCmd creates the funcs command
func NewFuncsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "funcs",
		Short: "List the functions that can be run",
		Long: `List the task functions registered in this executable, with their Go
signatures. Functions taking more than one parameter expect a sequence
argument, which is spread into the parameters.`,
		Aliases: []string{"functions", "ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd, registry.Default)
		},
	}

	return cmd
}

func runFuncs(cmd *cobra.Command, reg *registry.Registry) error {
	rows := Rows(reg)
	if len(rows.Rows) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No functions registered")
		return nil
	}

	formatter := output.NewFormatter(output.Format(viper.GetString("output")),
		output.WithNoColor(viper.GetBool("no-color")),
	)
	return formatter.Format(cmd.OutOrStdout(), rows)
}

// Rows lists the functions of reg with their signature and parameter count
func Rows(reg *registry.Registry) output.Rows {
	rows := output.Rows{Headers: []string{"NAME", "PARAMS", "SIGNATURE"}}
	for _, name := range reg.Names() {
		fn, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		rows.Rows = append(rows.Rows, []string{name, strconv.Itoa(fn.NumParams()), fn.Signature()})
	}
	return rows
}
