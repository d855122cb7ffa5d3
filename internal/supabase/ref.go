package supabase

import (
	"net/url"
	"regexp"
	"strings"
)

// refPattern matches a project reference: the subdomain segment of a hosted
// project URL (https://<ref>.supabase.co or a self-hosted equivalent).
var refPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ParseProjectRef extracts the project reference from a project URL of the
// form https://<ref>.<host>. It returns an *InvalidReferenceError for
// anything that does not match that shape.
func ParseProjectRef(projectURL string) (string, error) {
	u, err := url.Parse(projectURL)
	if err != nil || u.Scheme != "https" || u.Hostname() == "" {
		return "", &InvalidReferenceError{URL: projectURL}
	}
	labels := strings.Split(u.Hostname(), ".")
	if len(labels) < 2 {
		return "", &InvalidReferenceError{URL: projectURL}
	}
	ref := labels[0]
	if !refPattern.MatchString(ref) {
		return "", &InvalidReferenceError{URL: projectURL}
	}
	return ref, nil
}
