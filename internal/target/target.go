// Package target resolves raw target identifiers into (region, resource)
// pairs. A log group may be addressed as "us-east-1:/aws/app/rails" to
// override the default region; anything whose prefix does not look like a
// region is treated as a plain resource name, so resources containing
// colons remain addressable.
package target

import "strings"

// Target is one addressable search destination. Region is empty when the
// identifier carried no region prefix.
type Target struct {
	Region   string
	Resource string
}

// Parse splits a raw identifier into an optional region and a resource.
// It never fails: malformed input degrades to a target without a region.
func Parse(raw string) Target {
	raw = strings.TrimSpace(raw)

	if idx := strings.Index(raw, ":"); idx > 0 {
		if prefix := raw[:idx]; isRegionShaped(prefix) {
			return Target{Region: prefix, Resource: raw[idx+1:]}
		}
	}

	return Target{Resource: raw}
}

// ParseAll parses each identifier in order.
func ParseAll(raws []string) []Target {
	targets := make([]Target, 0, len(raws))
	for _, raw := range raws {
		targets = append(targets, Parse(raw))
	}
	return targets
}

// String renders the target back to its identifier form.
func (t Target) String() string {
	if t.Region == "" {
		return t.Resource
	}
	return t.Region + ":" + t.Resource
}

// isRegionShaped reports whether s matches the region shape: three or
// more hyphen-joined segments, a two-letter lowercase continent code
// first and a number last (e.g. "ap-southeast-2").
func isRegionShaped(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return false
	}

	last := parts[len(parts)-1]
	if last == "" {
		return false
	}
	for _, c := range last {
		if c < '0' || c > '9' {
			return false
		}
	}

	if len(parts[0]) != 2 {
		return false
	}
	for _, c := range parts[0] {
		if c < 'a' || c > 'z' {
			return false
		}
	}

	return true
}
