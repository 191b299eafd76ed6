package run

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ygrebnov/errorc"
	"gopkg.in/yaml.v3"

	"github.com/aryankumar/procpool/internal/executor"
	"github.com/aryankumar/procpool/internal/output"
	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/registry"
	"github.com/aryankumar/procpool/internal/util"
)

// runOptions holds the local flags of the run command
type runOptions struct {
	argsFile    string
	noSpread    bool
	wide        bool
	showMetrics bool
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run FUNC [ARG...]",
		Short: "Run a registered function once per argument",
		Long: `Run a registered function once per argument in a pool of worker processes.

Every ARG is parsed as a YAML value, so 3 is a number, foo is a string and
[1, 2] is a sequence. A sequence is spread into positional parameters unless
--no-spread is given. Arguments can also be read from a file holding a YAML or
JSON list (use - for stdin).

The console output of each task is printed as one block as soon as the task
finishes. Results are printed in argument order once the batch is done.`,
		Example: `  # Double five numbers on 4 workers
  procpool run double 9 3 8 1 33 -p 4

  # Spread pairs into two parameters
  procpool run sumsq "[1, 2]" "[3, 4]"

  # Keep going when a task fails
  procpool run fail-on "[0, 2]" "[1, 2]" "[2, 2]" "[3, 2]" --policy log-and-continue

  # Read arguments from a file and print JSON
  procpool run double --args-file args.yaml -o json`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeFuncNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().IntP("workers", "p", 0, "number of worker processes (0 = number of CPUs)")
	cmd.Flags().Duration("timeout", executor.DefaultTimeout, "wait at most this long for the whole batch")
	cmd.Flags().Duration("start-timeout", executor.DefaultStartTimeout, "wait at most this long for the workers to start")
	cmd.Flags().String("policy", string(protocol.Propagate), "failure policy (propagate, log-and-continue)")
	cmd.Flags().StringVarP(&opts.argsFile, "args-file", "f", "", "read arguments from a YAML or JSON list")
	cmd.Flags().BoolVar(&opts.noSpread, "no-spread", false, "pass sequences as a single argument")
	cmd.Flags().BoolVar(&opts.wide, "wide", false, "show worker pids and full error messages")
	cmd.Flags().BoolVar(&opts.showMetrics, "show-metrics", false, "print executor metrics after the results")

	viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
	viper.BindPFlag("start-timeout", cmd.Flags().Lookup("start-timeout"))
	viper.BindPFlag("policy", cmd.Flags().Lookup("policy"))

	cmd.RegisterFlagCompletionFunc("policy", cobra.FixedCompletions(
		[]string{string(protocol.Propagate), string(protocol.LogAndContinue)},
		cobra.ShellCompDirectiveNoFileComp,
	))

	return cmd
}

// completeFuncNames offers the registered functions for the first argument only
func completeFuncNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return registry.Default.Names(), cobra.ShellCompDirectiveNoFileComp
}

func runBatch(cmd *cobra.Command, opts *runOptions, name string, rawArgs []string) error {
	logger := slog.Default()

	values, err := collectArgs(cmd, opts, rawArgs)
	if err != nil {
		return err
	}

	args, err := protocol.NewArgs(values)
	if err != nil {
		return fmt.Errorf("failed to encode arguments: %w", err)
	}

	policyName := viper.GetString("policy")
	policy, err := protocol.ParsePolicy(policyName)
	if err != nil {
		return errorc.With(util.ErrInvalidConfig, errorc.String("policy", policyName))
	}

	format := output.Format(viper.GetString("output"))
	if format == "" {
		format = output.FormatTable
	}
	noColor := viper.GetBool("no-color")

	// Structured output must stay parseable, so task output goes to stderr
	taskOut := cmd.OutOrStdout()
	if format != output.FormatTable {
		taskOut = cmd.ErrOrStderr()
	}

	dispatcher, err := executor.NewDispatcher(executor.Config{
		Workers:      viper.GetInt("workers"),
		Timeout:      viper.GetDuration("timeout"),
		StartTimeout: viper.GetDuration("start-timeout"),
		Policy:       policy,
		Output:       taskOut,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	logger.Debug("running batch", "func", name, "tasks", len(args), "policy", policy)

	result, runErr := dispatcher.Run(cmd.Context(), executor.Request{Func: name, Args: args})
	if result == nil {
		return runErr
	}

	formatter := output.NewFormatter(format,
		output.WithNoColor(noColor),
		output.WithWide(opts.wide),
	)
	if err := formatter.FormatResult(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}

	if opts.showMetrics {
		if err := printMetrics(cmd.OutOrStdout(), formatter); err != nil {
			return err
		}
	}

	// A teardown failure after a successful batch is still reported
	return runErr
}

// collectArgs gathers the argument units from the file and the command line, in that order
func collectArgs(cmd *cobra.Command, opts *runOptions, rawArgs []string) ([]any, error) {
	var values []any

	if opts.argsFile != "" {
		fromFile, err := readArgsFile(cmd.InOrStdin(), opts.argsFile)
		if err != nil {
			return nil, err
		}
		for _, v := range fromFile {
			values = append(values, toUnit(v, opts.noSpread))
		}
	}

	for i, raw := range rawArgs {
		v, err := parseArg(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q): %w", i, raw, err)
		}
		values = append(values, toUnit(v, opts.noSpread))
	}

	return values, nil
}

// parseArg parses one command-line argument as a YAML scalar, sequence or mapping
func parseArg(raw string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// readArgsFile reads a YAML or JSON list of argument units
func readArgsFile(stdin io.Reader, path string) ([]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read arguments: %w", err)
	}

	var values []any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse arguments from %s: %w", path, err)
	}
	return values, nil
}

// toUnit turns a parsed sequence into a Tuple unless spreading is disabled
func toUnit(v any, noSpread bool) any {
	seq, ok := v.([]any)
	if !ok || noSpread {
		return v
	}
	return protocol.Tuple(seq)
}

// printMetrics renders the executor's metric families as a table
func printMetrics(w io.Writer, formatter output.Formatter) error {
	rows, err := metricRows()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	return formatter.Format(w, rows)
}

func formatSeconds(v float64) string {
	return time.Duration(v * float64(time.Second)).Round(time.Microsecond).String()
}
