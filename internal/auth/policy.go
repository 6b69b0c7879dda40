package auth

import (
	"fmt"
	"strings"
)

// PolicyKind selects which actors may trigger a mirror run
type PolicyKind int

const (
	AllowAll PolicyKind = iota
	AllowRepoOrgMembers
	AllowRepoTeamMembers
	AllowExplicitList
)

// Values accepted by ONLY_REACT_TO.
const (
	OnlyReactToAll            = "all"
	OnlyReactToRepoOrg        = "repo-org"
	OnlyReactToRepoTeam       = "repo-team"
	OnlyReactToSpecifiedUsers = "specified-users"
)

func (k PolicyKind) String() string {
	switch k {
	case AllowAll:
		return OnlyReactToAll
	case AllowRepoOrgMembers:
		return OnlyReactToRepoOrg
	case AllowRepoTeamMembers:
		return OnlyReactToRepoTeam
	case AllowExplicitList:
		return OnlyReactToSpecifiedUsers
	default:
		return fmt.Sprintf("PolicyKind(%d)", int(k))
	}
}

// Policy is the configured authorization rule for a run
type Policy struct {
	Kind      PolicyKind
	Allowlist map[string]struct{}
}

// ParsePolicy builds a Policy from the ONLY_REACT_TO value and the allowlist.
// The allowlist is required iff onlyReactTo is specified-users.
func ParsePolicy(onlyReactTo string, allowlist []string) (Policy, error) {
	switch strings.TrimSpace(onlyReactTo) {
	case OnlyReactToAll:
		return Policy{Kind: AllowAll}, nil
	case OnlyReactToRepoOrg:
		return Policy{Kind: AllowRepoOrgMembers}, nil
	case OnlyReactToRepoTeam:
		return Policy{Kind: AllowRepoTeamMembers}, nil
	case OnlyReactToSpecifiedUsers:
		set := make(map[string]struct{}, len(allowlist))
		for _, login := range allowlist {
			login = strings.TrimSpace(login)
			if login != "" {
				set[login] = struct{}{}
			}
		}
		if len(set) == 0 {
			return Policy{}, fmt.Errorf("actor allowlist is required when only_react_to is %q", OnlyReactToSpecifiedUsers)
		}
		return Policy{Kind: AllowExplicitList, Allowlist: set}, nil
	case "":
		return Policy{}, fmt.Errorf("only_react_to is required")
	default:
		return Policy{}, fmt.Errorf("unknown only_react_to value %q", onlyReactTo)
	}
}

// NewExplicitListPolicy returns an AllowExplicitList policy for the given logins
func NewExplicitListPolicy(logins ...string) Policy {
	set := make(map[string]struct{}, len(logins))
	for _, login := range logins {
		set[login] = struct{}{}
	}
	return Policy{Kind: AllowExplicitList, Allowlist: set}
}
