package audit

import (
	"net/url"
	"regexp"
	"strings"
)

var leadingScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// NormalizeURL trims raw and prepends http:// when it carries no http(s) scheme.
// Applying it to its own output returns the same string.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", Errorf(InvalidRequest, "url is required")
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	case leadingScheme.MatchString(s):
		return "", Errorf(InvalidRequest, "unsupported url scheme in %q", s)
	default:
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", NewError(InvalidRequest, "invalid url", err)
	}
	if u.Host == "" {
		return "", Errorf(InvalidRequest, "url %q has no host", raw)
	}
	return s, nil
}

// NormalizeRequest validates the url and resolves the requested checks.
// No checks means all of them; duplicates are collapsed preserving first occurrence.
func NormalizeRequest(rawURL string, checks []string) (Request, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return Request{}, err
	}

	if len(checks) == 0 {
		return Request{URL: u, Checks: AllChecks()}, nil
	}

	seen := make(map[CheckKind]struct{}, len(checks))
	kinds := make([]CheckKind, 0, len(checks))
	for _, c := range checks {
		k, err := ParseCheckKind(c)
		if err != nil {
			return Request{}, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kinds = append(kinds, k)
	}
	return Request{URL: u, Checks: kinds}, nil
}
