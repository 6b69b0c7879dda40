package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/pkg/types"
)

// Decision is the result of an authorization check
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// MembershipChecker queries group memberships on the hosting platform
type MembershipChecker interface {
	IsOrgMember(ctx context.Context, org, user string) (bool, error)
	IsRepoTeamMember(ctx context.Context, repo types.Repository, user string) (bool, error)
}

// LookupError is an operational failure of a membership query. It is distinct
// from a Denied decision and must fail the run.
type LookupError struct {
	Policy PolicyKind
	Actor  string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("membership lookup for %q under policy %s failed: %v", e.Actor, e.Policy, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Authorizer decides whether an actor may trigger a mirror run
type Authorizer struct {
	checker MembershipChecker
	logger  *zap.Logger
}

// NewAuthorizer creates a new authorizer
func NewAuthorizer(checker MembershipChecker, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		checker: checker,
		logger:  logger,
	}
}

// Authorize evaluates policy for actor in the context of repo. A non-nil error
// is always a *LookupError.
func (a *Authorizer) Authorize(ctx context.Context, actor string, policy Policy, repo types.Repository) (Decision, error) {
	switch policy.Kind {
	case AllowAll:
		return Allowed, nil

	case AllowExplicitList:
		if _, ok := policy.Allowlist[actor]; ok {
			return Allowed, nil
		}
		return Denied, nil

	case AllowRepoOrgMembers:
		if actor == "" {
			return Denied, nil
		}
		member, err := a.checker.IsOrgMember(ctx, repo.Owner, actor)
		if err != nil {
			return Denied, &LookupError{Policy: policy.Kind, Actor: actor, Err: err}
		}
		return decide(member), nil

	case AllowRepoTeamMembers:
		if actor == "" {
			return Denied, nil
		}
		member, err := a.checker.IsRepoTeamMember(ctx, repo, actor)
		if err != nil {
			return Denied, &LookupError{Policy: policy.Kind, Actor: actor, Err: err}
		}
		return decide(member), nil

	default:
		a.logger.Warn("unknown policy kind, denying", zap.Stringer("policy", policy.Kind))
		return Denied, nil
	}
}

func decide(member bool) Decision {
	if member {
		return Allowed
	}
	return Denied
}
