package verify

import "github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"

// CacheAction says what to do with a previously cached per-commit
// verdict on the legacy sync path.
type CacheAction string

const (
	ActionSkipVerified  CacheAction = "skip_verified"
	ActionAddUnverified CacheAction = "add_unverified"
	ActionRecheck       CacheAction = "recheck"
)

// Valid reports whether a is a member of the closed action set.
func (a CacheAction) Valid() bool {
	switch a {
	case ActionSkipVerified, ActionAddUnverified, ActionRecheck:
		return true
	}
	return false
}

// CachedVerdict is a stored per-commit verdict. Both fields may be
// absent on rows written before the verdict columns existed.
type CachedVerdict struct {
	Approved *bool
	Reason   *domain.ReasonCode
}

// StalenessAction decides whether a cached verdict may be trusted.
// A positive verdict is always trusted; a negative one is trusted
// unless its reason is no_pr, the one outcome a later rebase/matching
// pass can retroactively fix.
func StalenessAction(cached *CachedVerdict, forceRecheck bool) CacheAction {
	if forceRecheck {
		return ActionRecheck
	}
	if cached == nil || cached.Approved == nil {
		return ActionRecheck
	}
	if *cached.Approved {
		return ActionSkipVerified
	}
	if cached.Reason != nil && *cached.Reason != domain.ReasonNoPR {
		return ActionAddUnverified
	}
	return ActionRecheck
}
