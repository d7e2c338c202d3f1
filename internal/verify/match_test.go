package verify

import (
	"testing"
	"time"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestMatchPRDirectSHA(t *testing.T) {
	pr := snapshot(7, "main", []domain.Commit{commit("abc123", "alice", at(0))}, nil)

	got := MatchPR(commit("abc123", "alice", at(0)), []*domain.PullRequestSnapshot{pr}, "main")
	require.Equal(t, pr, got)
}

func TestMatchPRSquashMergeSHA(t *testing.T) {
	// Squash merges mint a sha that is absent from the PR's own list.
	pr := snapshot(7, "main", []domain.Commit{commit("abc123", "alice", at(0))}, nil)
	pr.MergeCommitSHA = "squash999"

	got := MatchPR(commit("squash999", "alice", at(5)), []*domain.PullRequestSnapshot{pr}, "main")
	require.Equal(t, pr, got)
}

func TestMatchPRRebaseInvariance(t *testing.T) {
	original := commit("abc123", "Alice", at(0))
	pr := snapshot(7, "main", []domain.Commit{original}, nil)

	rebased := original
	rebased.SHA = "rebased456"
	rebased.AuthorLogin = "alice"
	rebased.AuthoredAt = original.AuthoredAt.Add(500 * time.Millisecond)

	got := MatchPR(rebased, []*domain.PullRequestSnapshot{pr}, "main")
	require.Equal(t, pr, got, "identical author/timestamp/title must match despite new sha")
}

func TestMatchPRRebaseOutsideWindow(t *testing.T) {
	pr := snapshot(7, "main", []domain.Commit{commit("abc123", "alice", at(0))}, nil)

	drifted := commit("rebased456", "alice", at(0).Add(2*time.Second))
	drifted.Message = "feat: change abc123"

	require.Nil(t, MatchPR(drifted, []*domain.PullRequestSnapshot{pr}, "main"))
}

func TestMatchPRRebaseDifferentTitle(t *testing.T) {
	pr := snapshot(7, "main", []domain.Commit{commit("abc123", "alice", at(0))}, nil)

	other := commit("rebased456", "alice", at(0))
	other.Message = "fix: something else entirely"

	require.Nil(t, MatchPR(other, []*domain.PullRequestSnapshot{pr}, "main"))
}

func TestMatchPRExcludesOtherBaseBranches(t *testing.T) {
	// The same commit can sit in a PR into a shared feature branch; a
	// review there must not be credited against the tracked branch.
	c := commit("abc123", "alice", at(0))
	featurePR := snapshot(3, "feature/shared", []domain.Commit{c}, nil)
	mainPR := snapshot(9, "main", []domain.Commit{c}, nil)

	got := MatchPR(c, []*domain.PullRequestSnapshot{featurePR, mainPR}, "main")
	require.Equal(t, mainPR, got)

	require.Nil(t, MatchPR(c, []*domain.PullRequestSnapshot{featurePR}, "main"))
}

func TestMatchPRPrecedence(t *testing.T) {
	// A direct sha hit beats a metadata match on an earlier candidate.
	c := commit("abc123", "alice", at(0))

	metadataOnly := snapshot(1, "main", []domain.Commit{func() domain.Commit {
		twin := c
		twin.SHA = "different"
		return twin
	}()}, nil)
	direct := snapshot(2, "main", []domain.Commit{c}, nil)

	got := MatchPR(c, []*domain.PullRequestSnapshot{metadataOnly, direct}, "main")
	require.Equal(t, direct, got)
}

func TestMatchPRNoCandidates(t *testing.T) {
	require.Nil(t, MatchPR(commit("abc123", "alice", at(0)), nil, "main"))
}

func TestBelongsToPR(t *testing.T) {
	pr := snapshot(7, "main", []domain.Commit{commit("abc123", "alice", at(0))}, nil)
	pr.MergeCommitSHA = "squash999"

	require.True(t, BelongsToPR(commit("abc123", "alice", at(0)), pr))
	require.True(t, BelongsToPR(commit("squash999", "alice", at(5)), pr))
	require.False(t, BelongsToPR(commit("elsewhere", "alice", at(0)), pr))
	require.False(t, BelongsToPR(commit("abc123", "alice", at(0)), nil))
}
