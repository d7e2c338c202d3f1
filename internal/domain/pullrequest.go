package domain

// PullRequestSnapshot is a read-only projection of one pull request,
// fetched once per verification run and never updated in place.
// MergeCommitSHA is empty until the PR is merged, or when the merge
// strategy does not produce a merge commit.
type PullRequestSnapshot struct {
	Number         int
	Title          string
	URL            string
	BaseBranch     string
	BaseSHA        string
	HeadSHA        string
	MergeCommitSHA string
	AuthorLogin    string
	MergerLogin    string
	Commits        []Commit
	Reviews        []Review
}

// ContainsSHA reports whether sha is one of the PR's own commits.
func (pr *PullRequestSnapshot) ContainsSHA(sha string) bool {
	for _, c := range pr.Commits {
		if c.SHA == sha {
			return true
		}
	}
	return false
}

// ApprovedReviews returns the reviews in APPROVED state.
func (pr *PullRequestSnapshot) ApprovedReviews() []Review {
	var approved []Review
	for _, r := range pr.Reviews {
		if r.State == ReviewApproved {
			approved = append(approved, r)
		}
	}
	return approved
}

// CommitAuthors returns the distinct author logins across the PR's commits.
func (pr *PullRequestSnapshot) CommitAuthors() []string {
	seen := make(map[string]bool)
	var authors []string
	for _, c := range pr.Commits {
		if c.AuthorLogin == "" || seen[c.AuthorLogin] {
			continue
		}
		seen[c.AuthorLogin] = true
		authors = append(authors, c.AuthorLogin)
	}
	return authors
}

// PRSummary identifies the deployed pull request in a verification result.
type PRSummary struct {
	Number      int
	Title       string
	URL         string
	AuthorLogin string
}
