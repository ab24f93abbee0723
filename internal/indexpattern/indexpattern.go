// Package indexpattern collapses a report's index template plus a time
// range to the narrowest index selector the store accepts.
package indexpattern

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultPattern is used when a report declares no index template.
const DefaultPattern = "gracc.osg.summary"

// ErrBadArgument is returned for a placeholder template with missing or
// invalid endpoints.
var ErrBadArgument = errors.New("bad index pattern argument")

// placeholder tokens recognized in templates, strftime style.
var placeholders = []string{"%Y", "%m", "%d"}

// Resolve maps (template, start, end) to an index selector.
//
// An empty template returns DefaultPattern. A template with no calendar
// placeholders is returned verbatim. When both rendered endpoints are
// equal that rendering is returned; otherwise the longest common prefix
// of the two renderings followed by a wildcard.
func Resolve(template string, start, end time.Time) (string, error) {
	if template == "" {
		return DefaultPattern, nil
	}
	if !hasPlaceholders(template) {
		return template, nil
	}
	if start.IsZero() || end.IsZero() {
		return "", fmt.Errorf("%w: placeholder template %q requires both endpoints", ErrBadArgument, template)
	}

	s := render(template, start)
	e := render(template, end)
	if s == e {
		return s, nil
	}
	return commonPrefix(s, e) + "*", nil
}

func hasPlaceholders(template string) bool {
	for _, p := range placeholders {
		if strings.Contains(template, p) {
			return true
		}
	}
	return false
}

func render(template string, t time.Time) string {
	r := strings.NewReplacer(
		"%Y", t.Format("2006"),
		"%m", t.Format("01"),
		"%d", t.Format("02"),
	)
	return r.Replace(template)
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
