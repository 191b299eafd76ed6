package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/procpool/internal/cli/configcmd"
	"github.com/aryankumar/procpool/internal/cli/funcs"
	"github.com/aryankumar/procpool/internal/cli/run"
	"github.com/aryankumar/procpool/internal/config"
)

var (
	cfgFile string
	profile string
)

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "procpool",
		Short: "procpool - run a function over many arguments in worker processes",
		Long: `procpool runs a registered function once per argument in a pool of worker
processes. Results come back in argument order, the console output of every
task is printed as one uninterrupted block, and a task failure either aborts
the batch or is logged while the rest carries on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	// Define persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.procpool.yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "named settings profile from the config file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	registerFlagCompletions(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(run.NewRunCmd())
	rootCmd.AddCommand(funcs.NewFuncsCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd())

	return rootCmd
}

// initConfig loads the config file, resolves the selected profile and sets up logging.
// The resolved settings become viper defaults, so flags still win over them.
func initConfig(cmd *cobra.Command) error {
	manager := config.NewManager(cfgFile)
	if _, err := manager.Load(); err != nil {
		return err
	}

	settings, err := manager.Resolve(profile)
	if err != nil {
		return err
	}

	viper.SetDefault("workers", settings.Workers)
	viper.SetDefault("timeout", settings.Timeout)
	viper.SetDefault("start-timeout", settings.StartTimeout)
	viper.SetDefault("policy", settings.Policy)
	viper.SetDefault("output", settings.OutputFormat)
	viper.SetDefault("no-color", settings.NoColor)

	setupLogging(cmd)

	slog.Debug("resolved settings",
		"profile", profile,
		"workers", settings.Workers,
		"timeout", settings.Timeout,
		"policy", settings.Policy)

	return nil
}

// setupLogging configures structured logging with slog
func setupLogging(cmd *cobra.Command) {
	verbose := viper.GetBool("verbose")
	noColor := viper.GetBool("no-color")

	// Set log level based on verbose flag
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if noColor {
		// Use JSON handler for no-color mode
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}

	slog.SetDefault(slog.New(handler))

	if verbose {
		slog.Debug("verbose logging enabled")
	}
}
