package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/config"
	ghclient "github.com/clintrovert/ghasana/internal/github"
	"github.com/clintrovert/ghasana/pkg/types"
)

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Mirror the issue described by the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMirror(cmd, *configPath)
		},
	}
}

// runMirror performs one mirror run. Denied and loop-close problems are not
// errors; only a failed stage makes the command fail.
func runMirror(cmd *cobra.Command, configPath string) error {
	cfg, logger, err := setup(configPath, config.ModeRun)
	if err != nil {
		return err
	}
	defer logger.Sync()

	event, err := issueEventFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	orchestrator, err := newOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	out := orchestrator.Mirror(cmd.Context(), event)
	fmt.Fprintln(cmd.OutOrStdout(), out.Describe())

	if out.ExitCode() != 0 {
		logger.Error("run failed", zap.String("run_id", out.RunID), zap.Error(out.Err))
		return out.Err
	}
	return nil
}

// issueEventFromConfig builds the triggering issue event from the environment
func issueEventFromConfig(cfg *config.Config) (types.IssueEvent, error) {
	repo, number, err := ghclient.ParseIssueURL(cfg.Issue.URL)
	if err != nil {
		return types.IssueEvent{}, err
	}
	if cfg.Repo.Name != "" {
		repo, err = types.ParseRepository(cfg.Repo.Name)
		if err != nil {
			return types.IssueEvent{}, err
		}
	}

	var timestamp time.Time
	if cfg.Issue.Timestamp != "" {
		timestamp, err = time.Parse(time.RFC3339, cfg.Issue.Timestamp)
		if err != nil {
			return types.IssueEvent{}, fmt.Errorf("invalid ISSUE_TIMESTAMP %q: %w", cfg.Issue.Timestamp, err)
		}
	}

	return types.IssueEvent{
		URL:        cfg.Issue.URL,
		Number:     number,
		Title:      cfg.Issue.Title,
		Body:       cfg.Issue.Body,
		Actor:      cfg.Actor,
		Repository: repo,
		Timestamp:  timestamp,
	}, nil
}
