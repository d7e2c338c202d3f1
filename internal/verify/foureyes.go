package verify

import (
	"fmt"
	"strings"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

// Evaluation is the outcome of a four-eyes check on one pull request.
// Reason is meaningful only when Approved is false.
type Evaluation struct {
	Approved  bool
	Reason    domain.ReasonCode
	Approvers []string
	Detail    string
}

// EvaluateFourEyes decides whether the pull request carries an
// approval submitted after the last substantive commit. Trailing
// base-branch merges are skipped when locating that commit.
//
// allowMergerException enables the validating-merger rule: an earlier
// approval still counts when a human who authored none of the commits
// performed the merge, since that person saw the final diff. The
// exception only applies to the deployed PR itself; whoever merged an
// unrelated PR did not necessarily see this deployment.
func EvaluateFourEyes(pr *domain.PullRequestSnapshot, allowMergerException bool) Evaluation {
	if len(pr.Commits) == 0 {
		return Evaluation{
			Reason: domain.ReasonNoApprovedReviews,
			Detail: "no commits found",
		}
	}

	last, skippedMerges := lastSubstantiveCommit(pr)
	cutoff := last.EffectiveTimestamp()

	var approvers []string
	for _, r := range pr.Reviews {
		if r.State != domain.ReviewApproved || r.SubmittedAt == nil {
			continue
		}
		if r.SubmittedAt.After(cutoff) {
			approvers = append(approvers, r.ReviewerLogin)
		}
	}
	if len(approvers) > 0 {
		detail := fmt.Sprintf("approved by %s after the last commit", strings.Join(approvers, ", "))
		if skippedMerges > 0 {
			detail += fmt.Sprintf(" (%d trailing base-branch merge(s) skipped)", skippedMerges)
		}
		return Evaluation{Approved: true, Approvers: approvers, Detail: detail}
	}

	approved := pr.ApprovedReviews()
	if len(approved) > 0 && allowMergerException && pr.MergerLogin != "" && !isCommitAuthor(pr, pr.MergerLogin) {
		approvers = make([]string, 0, len(approved)+1)
		for _, r := range approved {
			approvers = append(approvers, r.ReviewerLogin)
		}
		approvers = append(approvers, pr.MergerLogin)
		return Evaluation{
			Approved:  true,
			Approvers: approvers,
			Detail: fmt.Sprintf("approved by %s before the last commit; merger %s authored no commit and validated the final state",
				approved[0].ReviewerLogin, pr.MergerLogin),
		}
	}

	if len(approved) == 0 {
		return Evaluation{
			Reason: domain.ReasonNoApprovedReviews,
			Detail: "no approved reviews",
		}
	}

	return Evaluation{
		Reason: domain.ReasonApprovalBeforeLastCommit,
		Detail: fmt.Sprintf("last approval by %s predates the last commit", approved[len(approved)-1].ReviewerLogin),
	}
}

// lastSubstantiveCommit scans from the end of the PR's commit list,
// skipping base-branch merges. Falls back to the literal last commit
// when every commit is a merge.
func lastSubstantiveCommit(pr *domain.PullRequestSnapshot) (domain.Commit, int) {
	skipped := 0
	for i := len(pr.Commits) - 1; i >= 0; i-- {
		c := pr.Commits[i]
		if c.IsMerge && IsBaseBranchMerge(c.Message, pr.BaseBranch) {
			skipped++
			continue
		}
		return c, skipped
	}
	return pr.Commits[len(pr.Commits)-1], 0
}

func isCommitAuthor(pr *domain.PullRequestSnapshot, login string) bool {
	for _, c := range pr.Commits {
		if strings.EqualFold(c.AuthorLogin, login) {
			return true
		}
	}
	return false
}
