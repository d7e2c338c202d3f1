package verify

import (
	"strings"
)

// IsBaseBranchMerge reports whether the commit message describes the
// base branch being merged into a feature branch. Recognized forms are
// the canonical "Merge branch '<base>' into …" (with or without the
// trailing target), the common main/master aliases, and the
// remote-tracking variant "Merge remote-tracking branch 'origin/<base>'".
// Any other merge message may hide unreviewed changes and must not be
// classified as a base catch-up.
func IsBaseBranchMerge(message, baseBranch string) bool {
	title := message
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}

	for _, branch := range candidateBranches(baseBranch) {
		refs := []string{
			"Merge branch '" + branch + "'",
			"Merge remote-tracking branch 'origin/" + branch + "'",
		}
		for _, ref := range refs {
			if title == ref || strings.HasPrefix(title, ref+" into ") {
				return true
			}
		}
	}
	return false
}

func candidateBranches(baseBranch string) []string {
	branches := []string{"main", "master"}
	if baseBranch != "" && baseBranch != "main" && baseBranch != "master" {
		branches = append([]string{baseBranch}, branches...)
	}
	return branches
}
