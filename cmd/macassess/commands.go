package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jawbreaker1/macassess/internal/config"
	"github.com/Jawbreaker1/macassess/internal/history"
	"github.com/Jawbreaker1/macassess/internal/llm"
	"github.com/Jawbreaker1/macassess/internal/tools"
)

func newProvidersCmd(out io.Writer, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			newConsole(out, g).Providers(llm.Providers())
			return nil
		},
	}
}

func newToolsCmd(out io.Writer, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the assessment tools the model can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := tools.NewRegistry(nil, tools.Options{})
			newConsole(out, g).Tools(registry.Categories())
			return nil
		},
	}
}

func newHistoryCmd(out io.Writer, g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived assessment runs",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openHistory(cmd, g)
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			newConsole(out, g).History(runs)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a run, its plan and report (-v adds the transcript)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openHistory(cmd, g)
			if err != nil {
				return err
			}
			defer db.Close()
			run, err := db.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			newConsole(out, g).Run(run)
			return nil
		},
	}
	cmd.AddCommand(list, show)
	// Bare "history" lists.
	cmd.RunE = list.RunE
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func openHistory(cmd *cobra.Command, g *globalFlags) (*history.DB, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	if cfg.History.Path == "" {
		return nil, errors.New("history path is not configured")
	}
	if _, err := os.Stat(cfg.History.Path); err != nil {
		return nil, fmt.Errorf("no history at %s", cfg.History.Path)
	}
	return history.Open(cmd.Context(), cfg.History.Path)
}

func newConfigCmd(out io.Writer, g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if g.configPath != "" {
				path = g.configPath
			}
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "macassess %s\n", version)
		},
	}
}
