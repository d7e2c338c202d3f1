package verify

import (
	"fmt"
	"strings"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

// DependabotLogin is the dependency-bot identity recognized by the
// dependabot_only policy mode.
const DependabotLogin = "dependabot[bot]"

// PolicyDecision is the outcome of an implicit-approval policy check.
type PolicyDecision struct {
	Qualifies     bool
	Justification string
}

// EvaluateImplicitPolicy decides whether a merge counts as approved
// without an explicit post-commit review, per the configured mode.
// The switch is exhaustive over the closed mode set; an unknown mode
// is malformed input the caller must reject up front.
func EvaluateImplicitPolicy(mode domain.PolicyMode, prAuthor, lastCommitAuthor, merger string, commitAuthors []string) PolicyDecision {
	switch mode {
	case domain.PolicyOff:
		return PolicyDecision{Justification: "implicit approval is disabled"}

	case domain.PolicyDependabotOnly:
		if !strings.EqualFold(prAuthor, DependabotLogin) {
			return PolicyDecision{Justification: fmt.Sprintf("pull request author %s is not %s", prAuthor, DependabotLogin)}
		}
		for _, author := range commitAuthors {
			if !strings.EqualFold(author, DependabotLogin) {
				return PolicyDecision{Justification: fmt.Sprintf("commit author %s is not %s", author, DependabotLogin)}
			}
		}
		if merger == "" || strings.EqualFold(merger, DependabotLogin) {
			return PolicyDecision{Justification: "merger does not differ from the dependency bot"}
		}
		return PolicyDecision{
			Qualifies:     true,
			Justification: fmt.Sprintf("%s authored every commit and %s merged", DependabotLogin, merger),
		}

	case domain.PolicyAll:
		if merger == "" {
			return PolicyDecision{Justification: "merger is unknown"}
		}
		if strings.EqualFold(merger, prAuthor) {
			return PolicyDecision{Justification: fmt.Sprintf("merger %s is the pull request author", merger)}
		}
		if strings.EqualFold(merger, lastCommitAuthor) {
			return PolicyDecision{Justification: fmt.Sprintf("merger %s authored the last commit", merger)}
		}
		return PolicyDecision{
			Qualifies:     true,
			Justification: fmt.Sprintf("merger %s differs from author %s and last committer %s", merger, prAuthor, lastCommitAuthor),
		}
	}

	panic(fmt.Sprintf("unhandled implicit-approval mode %q", mode))
}
