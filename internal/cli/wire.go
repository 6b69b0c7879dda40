package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/asana"
	"github.com/clintrovert/ghasana/internal/auth"
	"github.com/clintrovert/ghasana/internal/bridge"
	"github.com/clintrovert/ghasana/internal/config"
	ghclient "github.com/clintrovert/ghasana/internal/github"
	"github.com/clintrovert/ghasana/internal/mirror"
)

const projectCacheSize = 16

// newOrchestrator wires the API clients and mirror stages from configuration
func newOrchestrator(cfg *config.Config, logger *zap.Logger) (*bridge.Orchestrator, error) {
	policy, err := auth.ParsePolicy(cfg.Policy.OnlyReactTo, cfg.Policy.ActorAllowlist)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	githubClient, err := ghclient.NewClient(cfg.Repo.Token, cfg.Repo.APIURL, cfg.HTTP.Timeout, logger.Named("github"))
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}
	asanaClient := asana.NewClient(cfg.Asana.PAT, cfg.Asana.APIURL, cfg.HTTP.Timeout, cfg.Asana.RequestsPerSecond, logger.Named("asana"))

	components := bridge.Components{
		Authorizer: auth.NewAuthorizer(githubClient, logger),
		Resolver:   mirror.NewProjectResolver(asanaClient, projectCacheSize, cfg.Asana.ProjectCacheTTL, logger),
		Locator:    mirror.NewLocator(asanaClient, logger),
		Reconciler: mirror.NewReconciler(asanaClient, mirror.NewSanitizer(), logger),
		LoopCloser: mirror.NewLoopCloser(githubClient, logger),
	}

	return bridge.NewOrchestrator(components, cfg.Asana.Project, policy, logger), nil
}
