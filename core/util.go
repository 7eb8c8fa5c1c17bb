package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStrings cleans every string of ss and drops the blank ones.
func CleanStrings(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = CleanString(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
