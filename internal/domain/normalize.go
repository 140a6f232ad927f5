package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for requester normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeResource trims the resource name. Case is preserved for display;
// comparisons go through SameResource.
func NormalizeResource(s string) string {
	return strings.TrimSpace(s)
}

// SameResource reports whether two resource names identify the same resource.
func SameResource(a, b string) bool {
	return strings.EqualFold(NormalizeResource(a), NormalizeResource(b))
}
