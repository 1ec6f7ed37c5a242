package utils

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// SanitizeText strips all HTML from user-entered card/reply text. Card text
// is stored as plain text (markdown is rendered only at export time), so the
// strict policy applies.
func SanitizeText(text string) string {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(policy.Sanitize(text))
}
