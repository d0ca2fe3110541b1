package game

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// maxDecodePasses bounds how many layers of entity encoding are peeled off.
const maxDecodePasses = 8

// SanitizeText removes any HTML markup and trims whitespace. The policy output
// is decoded so titles like "Ratchet & Clank" survive intact, and the policy
// runs again until the decoded text is stable, so entity-encoded tags are
// stripped like literal ones.
func SanitizeText(input string) string {
	cleaned := input
	for i := 0; i < maxDecodePasses; i++ {
		next := html.UnescapeString(policy.Sanitize(cleaned))
		if next == cleaned {
			return strings.TrimSpace(cleaned)
		}
		cleaned = next
	}
	// still changing: keep the escaped form
	return strings.TrimSpace(policy.Sanitize(cleaned))
}
