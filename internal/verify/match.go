package verify

import (
	"strings"
	"time"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

// metadataWindow bounds the author-timestamp drift tolerated when
// matching rebased commits whose shas no longer line up.
const metadataWindow = 1000 * time.Millisecond

// MatchPR resolves which of the candidate pull requests, if any, the
// commit belongs to. Only PRs targeting the deployment's base branch
// are eligible: a review on a PR into some other branch says nothing
// about the change that later reached the tracked branch.
//
// Precedence, first hit wins:
//  1. direct sha equality against a PR's own commit list
//  2. equality against the PR's merge-commit sha (squash merges)
//  3. metadata equivalence (rebase merges: same author, author
//     timestamps within metadataWindow, same first message line)
func MatchPR(commit domain.Commit, candidates []*domain.PullRequestSnapshot, baseBranch string) *domain.PullRequestSnapshot {
	var eligible []*domain.PullRequestSnapshot
	for _, pr := range candidates {
		if pr != nil && pr.BaseBranch == baseBranch {
			eligible = append(eligible, pr)
		}
	}

	for _, pr := range eligible {
		if pr.ContainsSHA(commit.SHA) {
			return pr
		}
	}

	for _, pr := range eligible {
		if pr.MergeCommitSHA != "" && pr.MergeCommitSHA == commit.SHA {
			return pr
		}
	}

	for _, pr := range eligible {
		for _, c := range pr.Commits {
			if metadataEquivalent(commit, c) {
				return pr
			}
		}
	}

	return nil
}

// BelongsToPR reports whether the commit is in the PR's own commit
// list or is the PR's squash/merge commit.
func BelongsToPR(commit domain.Commit, pr *domain.PullRequestSnapshot) bool {
	if pr == nil {
		return false
	}
	if pr.ContainsSHA(commit.SHA) {
		return true
	}
	return pr.MergeCommitSHA != "" && pr.MergeCommitSHA == commit.SHA
}

func metadataEquivalent(a, b domain.Commit) bool {
	if !strings.EqualFold(a.AuthorLogin, b.AuthorLogin) {
		return false
	}
	if a.MessageTitle() != b.MessageTitle() {
		return false
	}
	drift := a.AuthoredAt.Sub(b.AuthoredAt)
	if drift < 0 {
		drift = -drift
	}
	return drift <= metadataWindow
}
