package domain

import "time"

// VerificationStatus is the terminal status of one deployment verification.
type VerificationStatus string

const (
	StatusUnauthorizedRepository VerificationStatus = "unauthorized_repository"
	StatusPendingBaseline        VerificationStatus = "pending_baseline"
	StatusNoChanges              VerificationStatus = "no_changes"
	StatusApproved               VerificationStatus = "approved"
	StatusImplicitlyApproved     VerificationStatus = "implicitly_approved"
	StatusUnverifiedCommits      VerificationStatus = "unverified_commits"
	StatusManuallyApproved       VerificationStatus = "manually_approved"
	StatusLegacy                 VerificationStatus = "legacy"
	StatusError                  VerificationStatus = "error"
)

// Valid reports whether s is a member of the closed status set.
func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusUnauthorizedRepository, StatusPendingBaseline, StatusNoChanges,
		StatusApproved, StatusImplicitlyApproved, StatusUnverifiedCommits,
		StatusManuallyApproved, StatusLegacy, StatusError:
		return true
	}
	return false
}

// Sticky reports whether s is an external override that an automated
// re-evaluation must never overwrite.
func (s VerificationStatus) Sticky() bool {
	return s == StatusManuallyApproved || s == StatusLegacy
}

// ReasonCode explains why a commit is unverified.
type ReasonCode string

const (
	ReasonNoPR                     ReasonCode = "no_pr"
	ReasonNoApprovedReviews        ReasonCode = "no_approved_reviews"
	ReasonApprovalBeforeLastCommit ReasonCode = "approval_before_last_commit"

	// ReasonPRNotApproved is a legacy catch-all still present in stored
	// rows. No current code path produces it; seeing it means the case
	// was never analyzed.
	ReasonPRNotApproved ReasonCode = "pr_not_approved"
)

// Valid reports whether c is a member of the closed reason set.
func (c ReasonCode) Valid() bool {
	switch c {
	case ReasonNoPR, ReasonNoApprovedReviews, ReasonApprovalBeforeLastCommit, ReasonPRNotApproved:
		return true
	}
	return false
}

// ApprovalMethod records how a verification reached an approved state.
type ApprovalMethod string

const (
	MethodPRReview        ApprovalMethod = "pr_review"
	MethodImplicit        ApprovalMethod = "implicit"
	MethodBaseMerge       ApprovalMethod = "base_merge"
	MethodNoChanges       ApprovalMethod = "no_changes"
	MethodPendingBaseline ApprovalMethod = "pending_baseline"
	MethodNone            ApprovalMethod = "none"
)

// Valid reports whether m is a member of the closed method set.
func (m ApprovalMethod) Valid() bool {
	switch m {
	case MethodPRReview, MethodImplicit, MethodBaseMerge, MethodNoChanges, MethodPendingBaseline, MethodNone:
		return true
	}
	return false
}

// PolicyMode is the org-configured implicit-approval policy.
type PolicyMode string

const (
	PolicyOff            PolicyMode = "off"
	PolicyDependabotOnly PolicyMode = "dependabot_only"
	PolicyAll            PolicyMode = "all"
)

// Valid reports whether m is a member of the closed mode set.
func (m PolicyMode) Valid() bool {
	switch m {
	case PolicyOff, PolicyDependabotOnly, PolicyAll:
		return true
	}
	return false
}

// RepoAuthStatus is the authorization standing of a monitored repository.
type RepoAuthStatus string

const (
	RepoActive          RepoAuthStatus = "active"
	RepoPendingApproval RepoAuthStatus = "pending_approval"
	RepoHistorical      RepoAuthStatus = "historical"
	RepoUnknown         RepoAuthStatus = "unknown"
)

// Valid reports whether s is a member of the closed status set.
func (s RepoAuthStatus) Valid() bool {
	switch s {
	case RepoActive, RepoPendingApproval, RepoHistorical, RepoUnknown:
		return true
	}
	return false
}

// RangeCommit is one commit between the previous and current
// deployment, paired with its resolved pull request, if any.
type RangeCommit struct {
	Commit Commit
	PR     *PullRequestSnapshot
}

// VerificationInput is the complete evidence for one deployment
// decision. It is assembled once by the fetch layer and never resolved
// lazily during evaluation.
type VerificationInput struct {
	CommitSHA         string
	Repository        string
	BaseBranch        string
	RepoStatus        RepoAuthStatus
	PreviousCommitSHA string
	HasPrevious       bool
	DeployedPR        *PullRequestSnapshot
	CommitsBetween    []RangeCommit
	ImplicitPolicy    PolicyMode
}

// UnverifiedCommit is one commit in the deployed range that could not
// be tied to a satisfying approval.
type UnverifiedCommit struct {
	SHA      string
	Message  string
	Author   string
	Date     time.Time
	URL      string
	PRNumber int // 0 when no PR is associated
	Reason   ReasonCode
}

// ApprovalDetails records how the approved state, if any, was reached.
type ApprovalDetails struct {
	Method    ApprovalMethod
	Approvers []string
	Reason    string
}

// VerificationResult is the verdict for one deployment. It is produced
// fresh on every evaluation and never mutated afterward.
type VerificationResult struct {
	HasFourEyes       bool
	Status            VerificationStatus
	DeployedPR        *PRSummary
	UnverifiedCommits []UnverifiedCommit
	Approval          ApprovalDetails
}
