// Package cli provides the command-line interface for ghasana.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/config"
	"github.com/clintrovert/ghasana/internal/logging"
)

// NewRootCommand creates the root command. Running it without a subcommand
// performs a single mirror run, same as "ghasana run".
func NewRootCommand(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ghasana",
		Short: "Mirror GitHub issues into Asana tasks",
		Long: `ghasana mirrors a GitHub issue into an Asana task and links the task
back on the issue. Configuration is read from the environment (ACTOR, ASANA_PAT,
ASANA_PROJECT, ISSUE_URL, ISSUE_TITLE, ISSUE_BODY, REPO, REPO_TOKEN,
ONLY_REACT_TO, ACTOR_ALLOWLIST) and optionally from a config file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMirror(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (yaml, toml or json)")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newServeCommand(&configPath))

	return root
}

// setup loads and validates configuration and builds the logger
func setup(configPath string, mode config.Mode) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
