package verify

import (
	"testing"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/stretchr/testify/require"
)

func verdict(approved bool, reason domain.ReasonCode) *CachedVerdict {
	return &CachedVerdict{Approved: &approved, Reason: &reason}
}

func TestStalenessAction(t *testing.T) {
	noReason := &CachedVerdict{Approved: new(bool)}

	tests := []struct {
		name   string
		cached *CachedVerdict
		force  bool
		want   CacheAction
	}{
		{"force always rechecks", verdict(true, domain.ReasonNoPR), true, ActionRecheck},
		{"absent cache", nil, false, ActionRecheck},
		{"approved is trusted", verdict(true, ""), false, ActionSkipVerified},
		{"specific negative is trusted", verdict(false, domain.ReasonApprovalBeforeLastCommit), false, ActionAddUnverified},
		{"no approved reviews is trusted", verdict(false, domain.ReasonNoApprovedReviews), false, ActionAddUnverified},
		{"legacy catch-all is trusted", verdict(false, domain.ReasonPRNotApproved), false, ActionAddUnverified},
		{"no_pr may be fixed by rematching", verdict(false, domain.ReasonNoPR), false, ActionRecheck},
		{"negative without reason", noReason, false, ActionRecheck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StalenessAction(tt.cached, tt.force))
		})
	}
}
