package domain

import (
	"strings"
	"time"
)

// Commit is a single commit as observed from source control.
// Immutable once fetched.
type Commit struct {
	SHA         string
	Message     string
	AuthorLogin string
	AuthoredAt  time.Time
	CommittedAt time.Time
	IsMerge     bool
	ParentSHAs  []string
	URL         string
}

// MessageTitle returns the first line of the commit message.
func (c Commit) MessageTitle() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return c.Message[:i]
	}
	return c.Message
}

// EffectiveTimestamp is the timestamp used for approval ordering.
// The committer timestamp is assigned when the commit object is
// written, while the author timestamp can be backdated freely, so
// the committer timestamp wins whenever it is present.
func (c Commit) EffectiveTimestamp() time.Time {
	if !c.CommittedAt.IsZero() {
		return c.CommittedAt
	}
	return c.AuthoredAt
}
