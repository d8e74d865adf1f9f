package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/tsukkomi/internal/bus"
	"github.com/leonardotrapani/tsukkomi/internal/config"
	"github.com/leonardotrapani/tsukkomi/internal/daemon"
	"github.com/leonardotrapani/tsukkomi/internal/deps"
	"github.com/leonardotrapani/tsukkomi/internal/mcpserver"
	"github.com/leonardotrapani/tsukkomi/internal/provider"
	"github.com/leonardotrapani/tsukkomi/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "tsukkomi",
	Short:        "Live meeting transcription with an AI facilitator that speaks up",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		startCmd(),
		stopCmd(),
		statusCmd(),
		modeCmd(),
		intervalCmd(),
		summaryCmd(),
		clearCmd(),
		pollCmd(),
		watchCmd(),
		quitCmd(),
		versionCmd(),
		configureCmd(),
		modelsCmd(),
		doctorCmd(),
		mcpCmd(),
	)
}

func serveCmd() *cobra.Command {
	var (
		debug   bool
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := io.Writer(os.Stderr)
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			logger := newLogger(out, debug)

			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			d, err := daemon.New(mgr, logger)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "log at debug level")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
	return cmd
}

func newLogger(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	log.SetDefault(logger)
	return logger
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration for tsukkomi.

This will guide you through setting up:
- Meeting language and facilitator persona
- Interjection interval
- Facilitation provider, model and API keys
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd.OutOrStdout())
		},
	}
}

func runConfigure(w io.Writer) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if result.Cancelled {
		fmt.Fprintln(w, "Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := config.Save(configPath, result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration saved successfully!")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next Steps:")
	fmt.Fprintln(w, "1. Run the daemon: tsukkomi serve (a running daemon picks up persona and interval changes)")
	fmt.Fprintln(w, "2. Start a meeting: tsukkomi start")
	fmt.Fprintln(w, "3. Follow along: tsukkomi watch")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Config file location: %s\n", configPath)
	return nil
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List facilitation models per provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			printModels(cmd.OutOrStdout())
			return nil
		},
	}
}

func printModels(w io.Writer) {
	names := provider.ListProviders()
	sort.Strings(names)
	for _, name := range names {
		p := provider.GetProvider(name)
		if p == nil {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", name)
		for _, m := range p.LLMModels() {
			marker := " "
			if m == p.DefaultLLMModel() {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %s\n", marker, m)
		}
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external programs tsukkomi needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, ok := deps.CheckAll(cmd.Context())
			printReports(cmd.OutOrStdout(), reports)
			if !ok {
				return errors.New("required programs are missing")
			}
			return nil
		},
	}
}

func printReports(w io.Writer, reports []deps.Report) {
	for _, r := range reports {
		switch {
		case r.Status.Installed:
			version := r.Status.Version
			if version == "" {
				version = "version unknown"
			}
			fmt.Fprintf(w, "ok       %-12s %s (%s)\n", r.Tool.Name, r.Status.Path, version)
		case r.Tool.Required:
			fmt.Fprintf(w, "MISSING  %-12s needed for %s\n", r.Tool.Name, r.Tool.Purpose)
		default:
			fmt.Fprintf(w, "missing  %-12s optional, used for %s\n", r.Tool.Name, r.Tool.Purpose)
		}
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the daemon controls as MCP tools on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bus.NewClient()
			if err != nil {
				return err
			}
			return mcpserver.Serve(client, daemon.Version)
		},
	}
}
