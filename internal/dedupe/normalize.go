package dedupe

import (
	"regexp"
	"strings"

	"github.com/mrlokans/bibsync/internal/entities"
)

var (
	doiPrefixPattern = regexp.MustCompile(`^(?:doi:\s*|https?://(?:dx\.)?doi\.org/)`)
	yearPattern      = regexp.MustCompile(`\b(\d{4})\b`)
)

// fingerprint is the normalized view of an item both sides are compared on.
type fingerprint struct {
	itemType  entities.ItemType
	title     string
	words     map[string]bool
	doi       string
	isbn      string
	issn      string
	year      string
	creators  map[string]bool
	names     []string // creators in item order
	container string
	volume    string
	issue     string
	pages     string
}

func newFingerprint(item *entities.Item) fingerprint {
	fp := fingerprint{
		itemType:  item.ItemType,
		title:     NormalizeTitle(item.Title()),
		doi:       NormalizeDOI(item.Field(entities.FieldDOI)),
		isbn:      NormalizeIdentifier(item.Field(entities.FieldISBN)),
		issn:      NormalizeIdentifier(item.Field(entities.FieldISSN)),
		year:      Year(item.Field(entities.FieldDate)),
		container: NormalizeTitle(container(item)),
		volume:    strings.TrimSpace(item.Field(entities.FieldVolume)),
		issue:     strings.TrimSpace(item.Field(entities.FieldIssue)),
		pages:     strings.Join(strings.Fields(item.Field(entities.FieldPages)), ""),
		creators:  make(map[string]bool, len(item.Creators)),
	}
	for _, c := range item.Creators {
		if name := NormalizeCreator(c); name != "" && !fp.creators[name] {
			fp.creators[name] = true
			fp.names = append(fp.names, name)
		}
	}
	fp.words = wordSet(fp.title)
	return fp
}

// NormalizeTitle lower-cases and collapses whitespace.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeDOI strips "doi:" and resolver URL prefixes.
func NormalizeDOI(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(doiPrefixPattern.ReplaceAllString(s, ""))
}

// NormalizeIdentifier strips hyphens and spaces from an ISBN or ISSN.
func NormalizeIdentifier(s string) string {
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	return strings.ToUpper(strings.TrimSpace(s))
}

// Year returns the first four-digit number of a date value.
func Year(date string) string {
	if m := yearPattern.FindStringSubmatch(date); m != nil {
		return m[1]
	}
	return ""
}

// NormalizeCreator renders "last, first" or the literal name, lower-cased
// and trimmed of stray punctuation.
func NormalizeCreator(c entities.Creator) string {
	var name string
	switch {
	case c.Name != "":
		name = c.Name
	case c.FirstName != "":
		name = strings.TrimSpace(c.LastName) + ", " + strings.TrimSpace(c.FirstName)
	default:
		name = c.LastName
	}
	name = strings.Join(strings.Fields(strings.ToLower(name)), " ")
	return strings.Trim(name, " .,;:")
}

func container(item *entities.Item) string {
	for _, f := range []string{entities.FieldPublicationTitle, entities.FieldBookTitle, entities.FieldProceedingsTitle} {
		if v := item.Field(f); v != "" {
			return v
		}
	}
	return ""
}

func wordSet(title string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(title) {
		words[w] = true
	}
	return words
}

// jaccard is |a ∩ b| / |a ∪ b|; two empty sets score 0.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
