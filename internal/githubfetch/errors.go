package githubfetch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v71/github"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

// classify sorts upstream failures into the two classes the caller
// cares about: history the host no longer has (do not retry) and
// transient failures (retry with backoff).
func classify(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: rate limited until %s", domain.ErrUpstreamTransient, rateErr.Rate.Reset)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: secondary rate limit", domain.ErrUpstreamTransient)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch code := ghErr.Response.StatusCode; {
		case code == http.StatusNotFound || code == http.StatusGone || code == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
		case code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err)
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err)
}
