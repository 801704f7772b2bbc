package midos

import (
	"regexp"
	"strings"
)

var (
	// Role qualifiers such as "(Hrsg.)" or "(Interviewter)".
	nameAnnotationPattern = regexp.MustCompile(`\s*\(.*?\)\s*`)
	commentPattern        = regexp.MustCompile(`\(.*?\)`)
)

// splitNames splits a person field on "|" or, failing that, ";". Without
// either delimiter the whole value is one name, even when it contains a
// comma ("Last, First").
func splitNames(value string) []string {
	if value == "" {
		return nil
	}

	var parts []string
	switch {
	case strings.Contains(value, "|"):
		parts = strings.Split(value, "|")
	case strings.Contains(value, ";"):
		parts = strings.Split(value, ";")
	default:
		parts = []string{value}
	}

	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := cleanName(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func cleanName(name string) string {
	return strings.TrimSpace(nameAnnotationPattern.ReplaceAllString(name, ""))
}

// splitValues splits a non-person multi-value field on "|", ";" or ",",
// in that order of preference.
func splitValues(value string) []string {
	if value == "" {
		return nil
	}

	var parts []string
	switch {
	case strings.Contains(value, "|"):
		parts = strings.Split(value, "|")
	case strings.Contains(value, ";"):
		parts = strings.Split(value, ";")
	case strings.Contains(value, ","):
		parts = strings.Split(value, ",")
	default:
		return []string{strings.TrimSpace(value)}
	}

	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

// sameMembers reports whether a and b hold the same values with the same
// length. Duplicates are not counted separately.
func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	contains := func(list []string, v string) bool {
		for _, x := range list {
			if x == v {
				return true
			}
		}
		return false
	}
	for _, v := range a {
		if !contains(b, v) {
			return false
		}
	}
	for _, v := range b {
		if !contains(a, v) {
			return false
		}
	}
	return true
}
