package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-scanqc/internal/config"
)

// Set by the linker at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries the state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "scanqc",
		Short:         "Quality-control statistics for survey scans.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("field", "co7", "Survey field to process")
	flags.Int("workers", 0, "Number of obsids processed concurrently")
	flags.Int("realizations", 0, "Null-distribution ensemble size")
	flags.Int64("seed", 0, "Seed for reproducible runs (0 = clock)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")

	root.AddCommand(a.runCmd(), a.fieldsCmd(), a.noisefitCmd(), versionCmd())

	return root
}

// setup loads .env, resolves the configuration and builds the logger.
// Flags only override the configuration when set explicitly.
func (a *app) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	for _, name := range []string{"field", "workers", "realizations", "seed", "log-level", "output", "scans"} {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := a.v.BindPFlag(name, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.Load(a.v, file)
	if err != nil {
		return err
	}

	level, _ := cfg.Level()
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information.",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "scanqc\n")
	_, _ = fmt.Fprintf(w, "  Version: %s\n", version)
	_, _ = fmt.Fprintf(w, "  Commit:  %s\n", commit)
	_, _ = fmt.Fprintf(w, "  Built:   %s\n", date)
}
