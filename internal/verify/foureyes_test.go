package verify

import (
	"testing"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestEvaluateFourEyesApprovalAfterLastCommit(t *testing.T) {
	// Scenario A: review submitted strictly after the only commit.
	pr := snapshot(7, "main",
		[]domain.Commit{commit("c1", "alice", at(0))},
		[]domain.Review{approval(1, "bob", at(5))},
	)

	ev := EvaluateFourEyes(pr, true)
	require.True(t, ev.Approved)
	require.Equal(t, []string{"bob"}, ev.Approvers)
}

func TestEvaluateFourEyesNoReviews(t *testing.T) {
	// Scenario B: zero reviews.
	pr := snapshot(7, "main", []domain.Commit{commit("c1", "alice", at(0))}, nil)

	ev := EvaluateFourEyes(pr, true)
	require.False(t, ev.Approved)
	require.Equal(t, domain.ReasonNoApprovedReviews, ev.Reason)
}

func TestEvaluateFourEyesNonApprovedReviewsOnly(t *testing.T) {
	submitted := at(5)
	pr := snapshot(7, "main",
		[]domain.Commit{commit("c1", "alice", at(0))},
		[]domain.Review{
			{ID: 1, ReviewerLogin: "bob", State: domain.ReviewCommented, SubmittedAt: &submitted},
			{ID: 2, ReviewerLogin: "carol", State: domain.ReviewChangesRequested, SubmittedAt: &submitted},
			{ID: 3, ReviewerLogin: "dave", State: domain.ReviewPending},
		},
	)

	ev := EvaluateFourEyes(pr, true)
	require.False(t, ev.Approved)
	require.Equal(t, domain.ReasonNoApprovedReviews, ev.Reason)
}

func TestEvaluateFourEyesCommitAfterApproval(t *testing.T) {
	// Scenario C, first half: approval at T1, new commit at T2 > T1,
	// merger is that commit's author.
	pr := snapshot(7, "main",
		[]domain.Commit{
			commit("c1", "alice", at(0)),
			commit("c2", "alice", at(2)),
		},
		[]domain.Review{approval(1, "bob", at(1))},
	)
	pr.MergerLogin = "alice"

	ev := EvaluateFourEyes(pr, true)
	require.False(t, ev.Approved)
	require.Equal(t, domain.ReasonApprovalBeforeLastCommit, ev.Reason)
}

func TestEvaluateFourEyesValidatingMerger(t *testing.T) {
	// Scenario C, second half: the merger authored no commit, so the
	// merge itself validates the final state.
	pr := snapshot(7, "main",
		[]domain.Commit{
			commit("c1", "alice", at(0)),
			commit("c2", "alice", at(2)),
		},
		[]domain.Review{approval(1, "bob", at(1))},
	)
	pr.MergerLogin = "carol"

	ev := EvaluateFourEyes(pr, true)
	require.True(t, ev.Approved)
	require.Contains(t, ev.Approvers, "bob")
	require.Contains(t, ev.Approvers, "carol")
}

func TestEvaluateFourEyesMergerExceptionDisabled(t *testing.T) {
	pr := snapshot(7, "main",
		[]domain.Commit{commit("c1", "alice", at(2))},
		[]domain.Review{approval(1, "bob", at(1))},
	)
	pr.MergerLogin = "carol"

	ev := EvaluateFourEyes(pr, false)
	require.False(t, ev.Approved)
	require.Equal(t, domain.ReasonApprovalBeforeLastCommit, ev.Reason)
}

func TestEvaluateFourEyesMergerCaseInsensitive(t *testing.T) {
	pr := snapshot(7, "main",
		[]domain.Commit{commit("c1", "Alice", at(2))},
		[]domain.Review{approval(1, "bob", at(1))},
	)
	pr.MergerLogin = "alice"

	ev := EvaluateFourEyes(pr, true)
	require.False(t, ev.Approved, "merger matching a commit author case-insensitively gets no exception")
}

func TestEvaluateFourEyesSkipsTrailingBaseMerges(t *testing.T) {
	pr := snapshot(7, "main",
		[]domain.Commit{
			commit("c1", "alice", at(0)),
			mergeCommit("m1", "alice", "Merge branch 'main' into feature/login", at(4)),
		},
		[]domain.Review{approval(1, "bob", at(2))},
	)

	ev := EvaluateFourEyes(pr, true)
	require.True(t, ev.Approved, "approval after the last substantive commit counts even when a base merge trails it")
}

func TestEvaluateFourEyesAllCommitsAreMerges(t *testing.T) {
	pr := snapshot(7, "main",
		[]domain.Commit{
			mergeCommit("m1", "alice", "Merge branch 'main' into feature/login", at(4)),
		},
		[]domain.Review{approval(1, "bob", at(2))},
	)

	// Falls back to the literal last commit; the approval predates it.
	ev := EvaluateFourEyes(pr, false)
	require.False(t, ev.Approved)
	require.Equal(t, domain.ReasonApprovalBeforeLastCommit, ev.Reason)
}

func TestEvaluateFourEyesNoCommits(t *testing.T) {
	pr := snapshot(7, "main", nil, []domain.Review{approval(1, "bob", at(2))})

	ev := EvaluateFourEyes(pr, true)
	require.False(t, ev.Approved)
	require.Equal(t, "no commits found", ev.Detail)
}

func TestEvaluateFourEyesCommitterTimestampGoverns(t *testing.T) {
	// Scenario E: the author timestamp is attacker-controllable. A
	// commit pushed after approval must not hide behind a backdated
	// author date.
	honest := commit("c1", "alice", at(0))

	forged := commit("c2", "alice", at(1))
	forged.CommittedAt = at(10) // actually created after the approval

	pr := snapshot(7, "main",
		[]domain.Commit{honest, forged},
		[]domain.Review{approval(1, "bob", at(5))},
	)
	pr.MergerLogin = "alice"

	ev := EvaluateFourEyes(pr, true)
	require.False(t, ev.Approved)
	require.Equal(t, domain.ReasonApprovalBeforeLastCommit, ev.Reason)
}
