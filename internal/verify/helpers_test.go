package verify

import (
	"time"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

func at(min int) time.Time {
	return time.Date(2026, 3, 10, 12, min, 0, 0, time.UTC)
}

func commit(sha, author string, t time.Time) domain.Commit {
	return domain.Commit{
		SHA:         sha,
		Message:     "feat: change " + sha,
		AuthorLogin: author,
		AuthoredAt:  t,
		CommittedAt: t,
	}
}

func mergeCommit(sha, author, message string, t time.Time) domain.Commit {
	return domain.Commit{
		SHA:         sha,
		Message:     message,
		AuthorLogin: author,
		AuthoredAt:  t,
		CommittedAt: t,
		IsMerge:     true,
		ParentSHAs:  []string{"p1" + sha, "p2" + sha},
	}
}

func approval(id int64, reviewer string, t time.Time) domain.Review {
	submitted := t
	return domain.Review{
		ID:            id,
		ReviewerLogin: reviewer,
		State:         domain.ReviewApproved,
		SubmittedAt:   &submitted,
	}
}

func snapshot(number int, base string, commits []domain.Commit, reviews []domain.Review) *domain.PullRequestSnapshot {
	return &domain.PullRequestSnapshot{
		Number:     number,
		Title:      "change set",
		BaseBranch: base,
		Commits:    commits,
		Reviews:    reviews,
	}
}
