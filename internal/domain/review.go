package domain

import "time"

// ReviewState is the state of a pull request review.
type ReviewState string

const (
	ReviewApproved         ReviewState = "APPROVED"
	ReviewChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewCommented        ReviewState = "COMMENTED"
	ReviewPending          ReviewState = "PENDING"
	ReviewDismissed        ReviewState = "DISMISSED"
)

// Valid reports whether s is a member of the closed state set.
func (s ReviewState) Valid() bool {
	switch s {
	case ReviewApproved, ReviewChangesRequested, ReviewCommented, ReviewPending, ReviewDismissed:
		return true
	}
	return false
}

// Review is a single review on a pull request.
// SubmittedAt is nil for PENDING reviews.
type Review struct {
	ID            int64
	ReviewerLogin string
	State         ReviewState
	SubmittedAt   *time.Time
}
