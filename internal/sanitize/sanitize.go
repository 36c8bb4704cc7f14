package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// HTML strips markup that is unsafe to embed in a rendered view. Formatting
// elements, links and images survive; scripts, handlers and styles do not.
func HTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(viewPolicy().Sanitize(trimmed))
}

func viewPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Globally()
		p.RequireNoFollowOnLinks(false)
		policy = p
	})
	return policy
}
