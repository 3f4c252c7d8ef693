package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cliconfig "github.com/antonkrylov/mossctl/internal/cli/config"
	"github.com/antonkrylov/mossctl/internal/moss"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Edit the mossctl config file",
	}
	cmd.AddCommand(newConfigViewCmd(root))
	cmd.AddCommand(newConfigSetContextCmd(root))
	cmd.AddCommand(newConfigUseContextCmd(root))
	return cmd
}

func loadOrEmpty(path string) (*cliconfig.Config, error) {
	cfg, err := cliconfig.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &cliconfig.Config{}
	}
	return cfg, nil
}

func newConfigViewCmd(root *rootOptions) *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the config with user ids masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadOrEmpty(root.configPath)
			if err != nil {
				return err
			}
			if !showSecrets {
				for _, ctx := range cfg.Contexts {
					if ctx != nil && ctx.UserID != "" {
						ctx.UserID = "***"
					}
				}
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print user ids in clear")
	return cmd
}

func newConfigSetContextCmd(root *rootOptions) *cobra.Command {
	var (
		ctxFlags cliconfig.Context
		use      bool
	)
	cmd := &cobra.Command{
		Use:   "set-context <name>",
		Short: "Create or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrEmpty(root.configPath)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			ctx := &cliconfig.Context{}
			if existing, ok := cfg.Contexts[name]; ok && existing != nil {
				*ctx = *existing
			}
			flags := cmd.Flags()
			if flags.Changed("server") {
				ctx.Server = ctxFlags.Server
			}
			if flags.Changed("port") {
				ctx.Port = ctxFlags.Port
			}
			if flags.Changed("user") {
				ctx.UserID = ctxFlags.UserID
			}
			if flags.Changed("language") {
				if !moss.IsSupportedLanguage(ctxFlags.Language) {
					return fmt.Errorf("%w: language %q is not supported", moss.ErrValidation, ctxFlags.Language)
				}
				ctx.Language = ctxFlags.Language
			}
			if flags.Changed("ignore-limit") {
				if ctxFlags.IgnoreLimit <= 1 {
					return fmt.Errorf("%w: ignore limit must be greater than 1", moss.ErrValidation)
				}
				ctx.IgnoreLimit = ctxFlags.IgnoreLimit
			}
			if flags.Changed("result-limit") {
				if ctxFlags.ResultLimit <= 1 {
					return fmt.Errorf("%w: result limit must be greater than 1", moss.ErrValidation)
				}
				ctx.ResultLimit = ctxFlags.ResultLimit
			}
			if err := cfg.SetContext(name, ctx); err != nil {
				return err
			}
			if use {
				cfg.CurrentContext = name
			}
			return cfg.Save(root.configPath)
		},
	}
	// Local flags shadow the root's --server/--port/--user inside this command.
	cmd.Flags().StringVar(&ctxFlags.Server, "server", "", "MOSS server host")
	cmd.Flags().IntVar(&ctxFlags.Port, "port", 0, "MOSS server port")
	cmd.Flags().StringVar(&ctxFlags.UserID, "user", "", "MOSS user id")
	cmd.Flags().StringVar(&ctxFlags.Language, "language", "", "default language")
	cmd.Flags().IntVar(&ctxFlags.IgnoreLimit, "ignore-limit", 0, "default ignore limit")
	cmd.Flags().IntVar(&ctxFlags.ResultLimit, "result-limit", 0, "default result limit")
	cmd.Flags().BoolVar(&use, "use", false, "also make this the current context")
	return cmd
}

func newConfigUseContextCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "use-context <name>",
		Short: "Switch the current context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrEmpty(root.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Use(args[0]); err != nil {
				return err
			}
			return cfg.Save(root.configPath)
		},
	}
}
