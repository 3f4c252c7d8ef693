package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	cliconfig "github.com/antonkrylov/mossctl/internal/cli/config"
	"github.com/antonkrylov/mossctl/internal/client"
	"github.com/antonkrylov/mossctl/internal/moss"
)

type rootOptions struct {
	server      string
	port        int
	userID      string
	configPath  string
	contextName string
	logLevel    string
	logJSON     bool

	conn   *client.Connection
	logger *slog.Logger
}

func (r *rootOptions) prepare(stderr io.Writer) error {
	resolved, err := client.ResolveConnection(r.configPath, r.contextName, r.server, r.port, r.userID)
	if err != nil {
		return err
	}
	r.conn = resolved
	r.logger = newLogger(stderr, r.logLevel, r.logJSON)
	return nil
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "mossctl",
		Short:         "Submit files to a MOSS similarity server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultConfig := os.Getenv("MOSSCTL_CONFIG")
	if defaultConfig == "" {
		defaultConfig = cliconfig.DefaultConfigPath()
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to mossctl config file (default $HOME/.mossctl/config)")
	rootCmd.PersistentFlags().StringVar(&opts.contextName, "context", "", "context name within the config (overrides currentContext)")
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", "", "MOSS server host (overrides config and MOSS_SERVER)")
	rootCmd.PersistentFlags().IntVar(&opts.port, "port", 0, "MOSS server port (overrides config and MOSS_PORT)")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", "", "MOSS user id (overrides config and MOSS_USER_ID)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// config subcommands edit the file and must work even when it names a missing context.
		for c := cmd; c != nil; c = c.Parent() {
			if c.Name() == "config" {
				opts.logger = newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logJSON)
				return nil
			}
		}
		return opts.prepare(cmd.ErrOrStderr())
	}

	rootCmd.AddCommand(newSubmitCmd(opts))
	rootCmd.AddCommand(newLanguagesCmd())
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newDoctorCmd(opts))
	return rootCmd
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List languages the server accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, lang := range moss.SupportedLanguages() {
				fmt.Fprintln(cmd.OutOrStdout(), lang)
			}
			return nil
		},
	}
}

func newLogger(w io.Writer, levelName string, asJSON bool) *slog.Logger {
	level := slog.LevelWarn
	switch l := strings.ToLower(strings.TrimSpace(levelName)); l {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning", "":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		fmt.Fprintf(w, "unknown --log-level=%q (expected debug|info|warn|error); defaulting to warn\n", levelName)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if asJSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// exitCode is 2 for input the caller can correct, 1 otherwise.
func exitCode(err error) int {
	if moss.Classify(err) == moss.KindValidation || errors.Is(err, cliconfig.ErrContextNotFound) {
		return 2
	}
	return 1
}
