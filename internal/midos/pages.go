package midos

import (
	"fmt"
	"regexp"
	"strings"
)

// Collation (KOL) patterns, tried in order. Case-insensitive matching means
// lower-case letters from the roman numeral set also count as numerals.
var (
	romanArabicPattern = regexp.MustCompile(`(?i)([IVXLCDM]+),?\s*(\d+(?:\s*-\s*\d+)?)\s*S\.?`)
	romanOnlyPattern   = regexp.MustCompile(`(?i)([IVXLCDM]+)\s*S\.?`)
	prefixedPattern    = regexp.MustCompile(`S\.\s*([\d\-,\s]+)`)
	suffixedPattern    = regexp.MustCompile(`([\d\-,\s]+)\s*S\.`)
	trailingPattern    = regexp.MustCompile(`,\s*(?:S\.\s*)?([\d\-]+)\s*$`)
	bareRangePattern   = regexp.MustCompile(`(\d+(?:\s*-\s*\d+)?)(?:\s*S\.)?$`)

	volumePattern = regexp.MustCompile(`^([A-Z]\s*\d[\d.]*)`)

	endPagePrefixed = regexp.MustCompile(`S\.\s*\d+\s*-\s*(\d+)`)
	endPageSuffixed = regexp.MustCompile(`\d+\s*-\s*(\d+)\s*S\.`)
)

// Pages extracts the page statement from a collation value: "XVI, 198 S."
// yields "XVI, 198", "S. 1-22" yields "1-22".
func Pages(kol string) string {
	kol = strings.TrimSpace(kol)
	if kol == "" {
		return ""
	}

	if m := romanArabicPattern.FindStringSubmatch(kol); m != nil {
		return fmt.Sprintf("%s, %s", m[1], m[2])
	}
	if m := romanOnlyPattern.FindStringSubmatch(kol); m != nil {
		return m[1]
	}
	for _, p := range []*regexp.Regexp{prefixedPattern, suffixedPattern, trailingPattern, bareRangePattern} {
		if m := p.FindStringSubmatch(kol); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// EndPage returns the second number of an explicit "S. a-b" or "a-b S." range.
func EndPage(kol string) string {
	if m := endPagePrefixed.FindStringSubmatch(kol); m != nil {
		return m[1]
	}
	if m := endPageSuffixed.FindStringSubmatch(kol); m != nil {
		return m[1]
	}
	return ""
}

// VolumeDesignator returns a leading part code such as "B 3.9" from
// "B 3.9, S. 1-22".
func VolumeDesignator(kol string) string {
	if m := volumePattern.FindStringSubmatch(strings.TrimSpace(kol)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
