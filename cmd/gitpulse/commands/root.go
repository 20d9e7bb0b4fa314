// Package commands implements CLI command handlers for gitpulse.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitpulse/pkg/observability"
	"github.com/Sumatoshi-tech/gitpulse/pkg/version"
)

const watchCmdName = "watch"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	repoPath    string
	output      string
	verbose     bool
	noColor     bool
	metricsAddr string

	cfg       *config.Config
	render    *renderer
	providers observability.Providers
	ready     bool
}

// Execute builds the command tree, runs the command selected by args and
// flushes telemetry before returning.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := a.newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	runErr := rootCmd.ExecuteContext(ctx)

	return errors.Join(runErr, a.shutdown())
}

func (a *app) newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gitpulse",
		Short: "gitpulse - inspect and update a git working copy",
		Long: `gitpulse answers the questions a git dashboard asks: what changed in the
working tree, which files a commit touched, what a stash holds, and whether
a branch can fast-forward to its upstream.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: ./gitpulse.yaml)")
	flags.StringVarP(&a.repoPath, "repo", "C", "", "repository path (overrides repository.path)")
	flags.StringVarP(&a.output, "output", "o", outputText, "Output format: text, json, yaml")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		a.newStatusCommand(),
		a.newCleanCommand(),
		a.newDiscardCommand(),
		a.newFilesCommand(),
		a.newDiffCommand(),
		a.newLogCommand(),
		a.newMergeCommand(),
		a.newStashCommand(),
		a.newWorktreesCommand(),
		a.newWatchCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

// setup loads configuration and initializes telemetry for the selected command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	render, err := newRenderer(a.stdout, a.output)
	if err != nil {
		return err
	}

	a.render = render

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if a.repoPath != "" {
		cfg.Repository.Path = a.repoPath
	}

	if a.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = a.metricsAddr
	}

	a.cfg = cfg

	mode := observability.ModeCLI
	if cmd.Name() == watchCmdName {
		mode = observability.ModeWatch
	}

	obsCfg := cfg.Observability(mode, version.Version)
	if a.verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg, a.stderr)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	a.providers = providers
	a.ready = true

	a.logger().DebugContext(cmd.Context(), "command started",
		slog.String("command", cmd.CommandPath()),
		slog.String("mode", string(mode)),
	)

	return nil
}

func (a *app) shutdown() error {
	if !a.ready {
		return nil
	}

	a.ready = false

	err := a.providers.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown observability: %w", err)
	}

	return nil
}

func (a *app) logger() *slog.Logger {
	if a.providers.Logger != nil {
		return a.providers.Logger
	}

	return slog.Default()
}

func (a *app) repo() string {
	return a.cfg.Repository.Path
}

// resolve turns a revision argument into a commit id. An empty rev yields the
// zero hash.
func (a *app) resolve(ctx context.Context, rev string) (gitlib.Hash, error) {
	if rev == "" {
		return gitlib.Hash{}, nil
	}

	id, err := gitlib.ResolveRevision(ctx, a.repo(), rev)
	if err != nil {
		return gitlib.Hash{}, fmt.Errorf("resolve %s: %w", rev, err)
	}

	return id, nil
}

// resolvePair resolves one required and one optional revision argument.
func (a *app) resolvePair(ctx context.Context, args []string) (id, other gitlib.Hash, err error) {
	id, err = a.resolve(ctx, args[0])
	if err != nil {
		return id, other, err
	}

	if len(args) > 1 {
		other, err = a.resolve(ctx, args[1])
	}

	return id, other, err
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// No config or telemetry needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
