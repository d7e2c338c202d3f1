package githubfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-github/v71/github"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/repository"
)

const (
	kindPullRequest = "pull_request"
	kindCommitRange = "commit_range"
)

type Config struct {
	Token         string
	BaseURL       string
	SchemaVersion int
}

// Client reads commit and pull-request data from the GitHub API,
// converting it to domain types. Fetched payloads are appended to the
// versioned snapshot cache and served from there on later runs.
type Client struct {
	gh            *github.Client
	snapshots     repository.SnapshotRepository
	schemaVersion int
	logger        *logger.Logger
}

func New(cfg Config, snapshots repository.SnapshotRepository, log *logger.Logger) (*Client, error) {
	gh := github.NewClient(nil).WithAuthToken(cfg.Token)
	if cfg.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise urls: %w", err)
		}
	}

	return &Client{
		gh:            gh,
		snapshots:     snapshots,
		schemaVersion: cfg.SchemaVersion,
		logger:        log.Component("githubfetch"),
	}, nil
}

// CommitsBetween returns the commits reachable from toSHA but not from
// fromSHA, oldest first.
func (c *Client) CommitsBetween(ctx context.Context, repo, fromSHA, toSHA string) ([]domain.Commit, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	cacheKey := fromSHA + ".." + toSHA
	var commits []domain.Commit
	if ok, err := c.fromCache(ctx, repo, kindCommitRange, cacheKey, &commits); err != nil {
		return nil, err
	} else if ok {
		return commits, nil
	}

	opts := &github.ListOptions{PerPage: 100}
	for {
		cmp, resp, err := c.gh.Repositories.CompareCommits(ctx, owner, name, fromSHA, toSHA, opts)
		if err != nil {
			return nil, classify(err)
		}
		for _, rc := range cmp.Commits {
			commits = append(commits, convertCommit(rc))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if err := c.toCache(ctx, repo, kindCommitRange, cacheKey, commits); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched commit range",
		"repository", repo,
		"from", fromSHA,
		"to", toSHA,
		"count", len(commits),
	)

	return commits, nil
}

// CandidatePRs returns the pull requests the host associates with one
// commit, as full snapshots. Base-branch filtering and precedence are
// the matcher's job, not this layer's.
func (c *Client) CandidatePRs(ctx context.Context, repo, sha string) ([]*domain.PullRequestSnapshot, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	prs, _, err := c.gh.PullRequests.ListPullRequestsWithCommit(ctx, owner, name, sha, &github.ListOptions{PerPage: 50})
	if err != nil {
		return nil, classify(err)
	}

	snapshots := make([]*domain.PullRequestSnapshot, 0, len(prs))
	for _, pr := range prs {
		snap, err := c.pullRequest(ctx, repo, owner, name, pr.GetNumber())
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// pullRequest loads one PR snapshot, preferring the cache.
func (c *Client) pullRequest(ctx context.Context, repo, owner, name string, number int) (*domain.PullRequestSnapshot, error) {
	cacheKey := strconv.Itoa(number)
	var snap domain.PullRequestSnapshot
	if ok, err := c.fromCache(ctx, repo, kindPullRequest, cacheKey, &snap); err != nil {
		return nil, err
	} else if ok {
		return &snap, nil
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, classify(err)
	}

	commits, err := c.prCommits(ctx, owner, name, number)
	if err != nil {
		return nil, err
	}

	reviews, err := c.prReviews(ctx, owner, name, number)
	if err != nil {
		return nil, err
	}

	snap = domain.PullRequestSnapshot{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		URL:            pr.GetHTMLURL(),
		BaseBranch:     pr.GetBase().GetRef(),
		BaseSHA:        pr.GetBase().GetSHA(),
		HeadSHA:        pr.GetHead().GetSHA(),
		MergeCommitSHA: pr.GetMergeCommitSHA(),
		AuthorLogin:    pr.GetUser().GetLogin(),
		MergerLogin:    pr.GetMergedBy().GetLogin(),
		Commits:        commits,
		Reviews:        reviews,
	}

	if err := c.toCache(ctx, repo, kindPullRequest, cacheKey, snap); err != nil {
		return nil, err
	}

	return &snap, nil
}

func (c *Client) prCommits(ctx context.Context, owner, name string, number int) ([]domain.Commit, error) {
	var commits []domain.Commit
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.gh.PullRequests.ListCommits(ctx, owner, name, number, opts)
		if err != nil {
			return nil, classify(err)
		}
		for _, rc := range page {
			commits = append(commits, convertCommit(rc))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

func (c *Client) prReviews(ctx context.Context, owner, name string, number int) ([]domain.Review, error) {
	var reviews []domain.Review
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, name, number, opts)
		if err != nil {
			return nil, classify(err)
		}
		for _, rv := range page {
			reviews = append(reviews, convertReview(rv))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return reviews, nil
}

func (c *Client) fromCache(ctx context.Context, repo, kind, key string, out any) (bool, error) {
	payload, err := c.snapshots.GetLatest(ctx, repo, kind, key, c.schemaVersion)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read snapshot cache: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decode snapshot %s/%s: %w", kind, key, err)
	}
	return true, nil
}

func (c *Client) toCache(ctx context.Context, repo, kind, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode snapshot %s/%s: %w", kind, key, err)
	}
	if err := c.snapshots.Append(ctx, repo, kind, key, c.schemaVersion, payload); err != nil {
		return fmt.Errorf("write snapshot cache: %w", err)
	}
	return nil
}

func convertCommit(rc *github.RepositoryCommit) domain.Commit {
	commit := rc.GetCommit()

	author := rc.GetAuthor().GetLogin()
	if author == "" {
		author = commit.GetAuthor().GetName()
	}

	parents := make([]string, 0, len(rc.Parents))
	for _, p := range rc.Parents {
		parents = append(parents, p.GetSHA())
	}

	return domain.Commit{
		SHA:         rc.GetSHA(),
		Message:     commit.GetMessage(),
		AuthorLogin: author,
		AuthoredAt:  commit.GetAuthor().GetDate().Time,
		CommittedAt: commit.GetCommitter().GetDate().Time,
		IsMerge:     len(rc.Parents) > 1,
		ParentSHAs:  parents,
		URL:         rc.GetHTMLURL(),
	}
}

func convertReview(rv *github.PullRequestReview) domain.Review {
	review := domain.Review{
		ID:            rv.GetID(),
		ReviewerLogin: rv.GetUser().GetLogin(),
		State:         domain.ReviewState(rv.GetState()),
	}
	if rv.SubmittedAt != nil {
		submitted := rv.SubmittedAt.Time
		review.SubmittedAt = &submitted
	}
	return review
}

func splitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("repository %q is not in owner/name form", repo)
	}
	return owner, name, nil
}
