package verify

import (
	"fmt"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

// ValidateInput rejects malformed evidence before evaluation. The
// engine itself is total over inputs that pass this check.
func ValidateInput(in domain.VerificationInput) error {
	if in.CommitSHA == "" {
		return fmt.Errorf("verification input has no commit sha")
	}
	if !in.RepoStatus.Valid() {
		return fmt.Errorf("invalid repository status %q", in.RepoStatus)
	}
	if !in.ImplicitPolicy.Valid() {
		return fmt.Errorf("invalid implicit-approval mode %q", in.ImplicitPolicy)
	}
	return nil
}

// Verify computes the four-eyes verdict for one deployment. Pure:
// it performs no I/O, never mutates its input, and yields the same
// result for the same input.
func Verify(in domain.VerificationInput) domain.VerificationResult {
	summary := prSummary(in.DeployedPR)

	if in.RepoStatus != domain.RepoActive {
		return domain.VerificationResult{
			Status:     domain.StatusUnauthorizedRepository,
			DeployedPR: summary,
			Approval: domain.ApprovalDetails{
				Method: domain.MethodNone,
				Reason: fmt.Sprintf("repository %s is %s, not active", in.Repository, in.RepoStatus),
			},
		}
	}

	if !in.HasPrevious {
		return domain.VerificationResult{
			Status:     domain.StatusPendingBaseline,
			DeployedPR: summary,
			Approval: domain.ApprovalDetails{
				Method: domain.MethodPendingBaseline,
				Reason: "first deployment for this application, nothing to diff against",
			},
		}
	}

	if len(in.CommitsBetween) == 0 {
		return domain.VerificationResult{
			HasFourEyes: true,
			Status:      domain.StatusNoChanges,
			DeployedPR:  summary,
			Approval: domain.ApprovalDetails{
				Method: domain.MethodNoChanges,
				Reason: "no commits between previous and current deployment",
			},
		}
	}

	deployed := in.DeployedPR
	var deployedEval Evaluation
	if deployed != nil {
		deployedEval = EvaluateFourEyes(deployed, true)
	}

	unverified := classifyRange(in, deployedEval)

	if len(unverified) == 0 {
		approval := domain.ApprovalDetails{
			Method: domain.MethodPRReview,
			Reason: "every commit in range carries a post-change approval",
		}
		if deployed != nil && deployedEval.Approved {
			approval.Approvers = deployedEval.Approvers
			approval.Reason = deployedEval.Detail
		}
		return domain.VerificationResult{
			HasFourEyes: true,
			Status:      domain.StatusApproved,
			DeployedPR:  summary,
			Approval:    approval,
		}
	}

	if deployed != nil {
		if result, ok := baseMergeException(deployed, unverified, summary); ok {
			return result
		}
		if result, ok := implicitApproval(in, deployed, summary); ok {
			return result
		}
	}

	return domain.VerificationResult{
		Status:            domain.StatusUnverifiedCommits,
		DeployedPR:        summary,
		UnverifiedCommits: unverified,
		Approval: domain.ApprovalDetails{
			Method: domain.MethodNone,
			Reason: fmt.Sprintf("%d commit(s) lack a post-change approval", len(unverified)),
		},
	}
}

// classifyRange walks every commit between the previous and current
// deployment. Base-branch merges are benign catch-ups and are skipped;
// any other merge commit without an associated PR can smuggle changes
// past review and is flagged.
func classifyRange(in domain.VerificationInput, deployedEval Evaluation) []domain.UnverifiedCommit {
	deployed := in.DeployedPR
	var unverified []domain.UnverifiedCommit

	for _, rc := range in.CommitsBetween {
		c := rc.Commit

		// Benign base catch-up merges are skipped no matter which PR
		// they ended up in.
		if c.IsMerge && IsBaseBranchMerge(c.Message, in.BaseBranch) {
			continue
		}

		matchesDeployed := deployed != nil &&
			(BelongsToPR(c, deployed) || (rc.PR != nil && rc.PR.Number == deployed.Number))
		if matchesDeployed {
			if deployedEval.Approved {
				continue
			}
			unverified = append(unverified, unverifiedCommit(c, deployedEval.Reason, deployed.Number))
			continue
		}

		// Any other merge commit with no associated PR can smuggle
		// changes past review and is never silently skipped.
		if c.IsMerge && rc.PR == nil {
			unverified = append(unverified, unverifiedCommit(c, domain.ReasonNoPR, 0))
			continue
		}

		if rc.PR != nil {
			ev := EvaluateFourEyes(rc.PR, false)
			if ev.Approved {
				continue
			}
			unverified = append(unverified, unverifiedCommit(c, ev.Reason, rc.PR.Number))
			continue
		}

		unverified = append(unverified, unverifiedCommit(c, domain.ReasonNoPR, 0))
	}

	return unverified
}

// baseMergeException clears unverified commits that a reviewed base
// merge in the deployed PR has already brought in: the deployed PR must
// carry an approval, contain a base-branch merge, and every unverified
// commit must predate that merge.
func baseMergeException(deployed *domain.PullRequestSnapshot, unverified []domain.UnverifiedCommit, summary *domain.PRSummary) (domain.VerificationResult, bool) {
	approved := deployed.ApprovedReviews()
	if len(approved) == 0 {
		return domain.VerificationResult{}, false
	}

	merge, ok := latestBaseMerge(deployed)
	if !ok {
		return domain.VerificationResult{}, false
	}

	cutoff := merge.EffectiveTimestamp()
	for _, uc := range unverified {
		if !uc.Date.Before(cutoff) {
			return domain.VerificationResult{}, false
		}
	}

	approvers := make([]string, 0, len(approved))
	for _, r := range approved {
		approvers = append(approvers, r.ReviewerLogin)
	}

	return domain.VerificationResult{
		HasFourEyes: true,
		Status:      domain.StatusApproved,
		DeployedPR:  summary,
		Approval: domain.ApprovalDetails{
			Method:    domain.MethodBaseMerge,
			Approvers: approvers,
			Reason:    fmt.Sprintf("unverified commits predate the reviewed base-branch merge %s", shortSHA(merge.SHA)),
		},
	}, true
}

func implicitApproval(in domain.VerificationInput, deployed *domain.PullRequestSnapshot, summary *domain.PRSummary) (domain.VerificationResult, bool) {
	if in.ImplicitPolicy == domain.PolicyOff {
		return domain.VerificationResult{}, false
	}

	lastAuthor := ""
	if len(deployed.Commits) > 0 {
		lastAuthor = deployed.Commits[len(deployed.Commits)-1].AuthorLogin
	}

	decision := EvaluateImplicitPolicy(in.ImplicitPolicy, deployed.AuthorLogin, lastAuthor, deployed.MergerLogin, deployed.CommitAuthors())
	if !decision.Qualifies {
		return domain.VerificationResult{}, false
	}

	return domain.VerificationResult{
		HasFourEyes: true,
		Status:      domain.StatusImplicitlyApproved,
		DeployedPR:  summary,
		Approval: domain.ApprovalDetails{
			Method:    domain.MethodImplicit,
			Approvers: []string{deployed.MergerLogin},
			Reason:    decision.Justification,
		},
	}, true
}

// latestBaseMerge returns the last base-branch merge in the deployed
// PR's own commit list.
func latestBaseMerge(pr *domain.PullRequestSnapshot) (domain.Commit, bool) {
	for i := len(pr.Commits) - 1; i >= 0; i-- {
		c := pr.Commits[i]
		if c.IsMerge && IsBaseBranchMerge(c.Message, pr.BaseBranch) {
			return c, true
		}
	}
	return domain.Commit{}, false
}

func unverifiedCommit(c domain.Commit, reason domain.ReasonCode, prNumber int) domain.UnverifiedCommit {
	return domain.UnverifiedCommit{
		SHA:      c.SHA,
		Message:  c.MessageTitle(),
		Author:   c.AuthorLogin,
		Date:     c.EffectiveTimestamp(),
		URL:      c.URL,
		PRNumber: prNumber,
		Reason:   reason,
	}
}

func prSummary(pr *domain.PullRequestSnapshot) *domain.PRSummary {
	if pr == nil {
		return nil
	}
	return &domain.PRSummary{
		Number:      pr.Number,
		Title:       pr.Title,
		URL:         pr.URL,
		AuthorLogin: pr.AuthorLogin,
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
