package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Jawbreaker1/macassess/internal/cli"
	"github.com/Jawbreaker1/macassess/internal/config"
	"github.com/Jawbreaker1/macassess/internal/llm"
)

const version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// globalFlags are shared by every command that loads configuration.
type globalFlags struct {
	configPath string
	profile    string
	envFile    string
	noColor    bool
	verbose    bool
}

type rootFlags struct {
	cli.Overrides
	interactive   bool
	listProviders bool
	output        string
	history       bool
	noHistory     bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "macassess [objective]",
		Short: "LLM-driven macOS security assessment agent",
		Long: `macassess plans a security assessment for an objective, runs read-only
macOS inspection tools chosen by a language model, and writes a report covering
impact, pivot opportunities, data at risk and exposed credentials.`,
		Example: `  macassess "What credentials are accessible on this system?"
  macassess -p openai "Assess lateral movement opportunities"
  macassess -p vertex --project my-project -o report-{run}.md "Find sensitive files"
  macassess --interactive`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.listProviders {
				newConsole(stdout, g).Providers(llm.Providers())
				return nil
			}
			if !f.interactive && len(args) == 0 {
				_ = cmd.Help()
				return errors.New("an objective or --interactive is required")
			}
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			switch {
			case cmd.Flags().Changed("no-history"):
				enabled := !f.noHistory
				f.Overrides.History = &enabled
			case cmd.Flags().Changed("history"):
				enabled := f.history
				f.Overrides.History = &enabled
			}
			f.Overrides.Verbose = g.verbose
			f.Overrides.NoColor = g.noColor
			f.Overrides.Apply(&cfg)

			runner, err := cli.NewRunner(cmd.Context(), cli.Options{
				Config:     cfg,
				ReportPath: f.output,
				In:         stdin,
				Out:        stdout,
			})
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			defer runner.Close()

			if f.interactive {
				return runner.Interactive(cmd.Context())
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			_, err = runner.RunObjective(ctx, args[0])
			return err
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to config JSON (default: user config dir)")
	pf.StringVar(&g.profile, "profile", "", "Profile name under the config dir's profiles/")
	pf.StringVar(&g.envFile, "env-file", "", "Load environment variables from this file (default: .env if present)")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Show detailed output including full tool results")

	fl := cmd.Flags()
	fl.StringVarP(&f.Provider, "provider", "p", "", "LLM provider: anthropic, openai, google, vertex, local")
	fl.StringVarP(&f.Model, "model", "m", "", "Model to use (provider default if empty)")
	fl.StringVar(&f.APIKey, "api-key", "", "API key (overrides the provider's environment variable)")
	fl.StringVar(&f.Project, "project", "", "GCP project ID (vertex)")
	fl.StringVar(&f.Location, "location", "", "GCP location (vertex, default us-central1)")
	fl.BoolVarP(&f.interactive, "interactive", "i", false, "Run in interactive mode")
	fl.BoolVar(&f.listProviders, "list-providers", false, "List available LLM providers and exit")
	fl.StringVarP(&f.output, "output", "o", "", "Write a markdown report to this path ({run} expands to the run ID)")
	fl.StringVar(&f.LogDir, "log-dir", "", "Directory for run and command logs")
	fl.BoolVar(&f.history, "history", true, "Archive runs in the history database")
	fl.BoolVar(&f.noHistory, "no-history", false, "Do not archive this run")
	cmd.MarkFlagsMutuallyExclusive("history", "no-history")

	cmd.AddCommand(
		newProvidersCmd(stdout, g),
		newToolsCmd(stdout, g),
		newHistoryCmd(stdout, g),
		newConfigCmd(stdout, g),
		newVersionCmd(stdout),
	)
	return cmd
}

// loadConfig loads environment files first so API keys from .env are visible
// to provider resolution.
func loadConfig(g *globalFlags) (config.Config, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil {
			return config.Config{}, fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}
	profilePath := ""
	if g.profile != "" {
		profilePath = config.ProfilePath(g.profile)
	}
	cfg, _, err := config.Load(g.configPath, profilePath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed: %w", err)
	}
	if g.verbose {
		cfg.UI.Verbose = true
	}
	if g.noColor {
		cfg.UI.NoColor = true
	}
	return cfg, nil
}

func newConsole(out io.Writer, g *globalFlags) *cli.Console {
	if g.noColor {
		color.NoColor = true
	}
	return cli.NewConsole(out, g.verbose, g.noColor)
}
