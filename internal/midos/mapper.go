package midos

import (
	"regexp"
	"strings"

	"github.com/mrlokans/bibsync/internal/ris"
)

// DefaultObjectBaseURL prefixes object file names when full text may be linked.
const DefaultObjectBaseURL = "https://www.hof.uni-halle.de/documents/"

var (
	angleAnnotationPattern = regexp.MustCompile(`<[^>]*>`)
	leadingPeriodPattern   = regexp.MustCompile(`^\.([^.]|$)`)
	parentWorkPattern      = regexp.MustCompile(`^(.*?)\s*(?:/\s*(.*))?$`)
	parentEditorPattern    = regexp.MustCompile(`^(.*?)\s*\(Hrsg\.\)`)
	languagePattern        = regexp.MustCompile(`pres\.:(.*?)(?:$|\s*\|)`)
	pdfSuffixPattern       = regexp.MustCompile(`(?i)\.pdf$`)
)

var keywordFields = []string{"SWO", "PSW", "GSW", "FSW", "OSW", "FISSWO", "GEO", "GLA", "GOR"}

var languageCodes = map[string]string{
	"ger": "de",
	"eng": "en",
	"fre": "fr",
	"lat": "la",
}

// Rule maps a record onto one exchange tag, either by copying a field
// verbatim or through a named transform.
type Rule struct {
	Tag       string
	Source    string
	Name      string
	transform func(Record) []string
}

// Copy emits the raw value of code under tag when it is non-empty.
func Copy(tag, code string) Rule {
	return Rule{Tag: tag, Source: code}
}

// Derive emits every non-empty value produced by fn under tag.
func Derive(tag, name string, fn func(Record) []string) Rule {
	return Rule{Tag: tag, Name: name, transform: fn}
}

func (r Rule) values(rec Record) []string {
	if r.transform == nil {
		if v := rec.Raw(r.Source); v != "" {
			return []string{v}
		}
		return nil
	}
	var out []string
	for _, v := range r.transform(rec) {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

type Option func(*Mapper)

// WithObjectBaseURL overrides the prefix used for full-text object links.
func WithObjectBaseURL(base string) Option {
	return func(m *Mapper) {
		if base != "" {
			m.objectBaseURL = base
		}
	}
}

// Mapper converts classified archival records into exchange entries.
type Mapper struct {
	objectBaseURL string
	rules         []Rule
}

func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{objectBaseURL: DefaultObjectBaseURL}
	for _, opt := range opts {
		opt(m)
	}
	m.rules = m.defaultRules()
	return m
}

// Rules returns the declared mapping order after the creator block.
func (m *Mapper) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

func (m *Mapper) defaultRules() []Rule {
	return []Rule{
		Copy("ID", "INN"),
		Derive("T1", "title", one(Title)),
		Copy("T3", "RHE"),
		Derive("A3", "contributors", func(r Record) []string { return splitNames(r.Get("BET")) }),
		Copy("Y1", "ERJ"),
		Copy("PY", "ERJ"),
		Copy("CN", "SIG"),
		Derive("N2", "abstract", one(abstract)),
		Derive("AB", "abstract", one(abstract)),
		Copy("CY", "ORT"),
		Copy("PB", "VEL"),
		Derive("KW", "keywords", Keywords),
		Derive("SP", "pages", func(r Record) []string { return []string{Pages(r.Raw("KOL"))} }),
		Derive("EP", "end_page", func(r Record) []string { return []string{EndPage(r.Raw("KOL"))} }),
		Derive("C3", "volume", func(r Record) []string { return []string{VolumeDesignator(r.Raw("KOL"))} }),
		Copy("JF", "ZNA"),
		Copy("JO", "ZNA"),
		Copy("JA", "ZNA"),
		Copy("VL", "ZJG"),
		Copy("IS", "ZHE"),
		Derive("SN", "identifier", one(identifier)),
		Copy("UR", "URL"),
		Derive("L1", "object_link", one(m.objectLink)),
		Copy("L2", "URLV"),
		Derive("LA", "language", func(r Record) []string { return []string{Language(r.Raw("LAN"))} }),
		Copy("C2", "KON"),
		Copy("C4", "MTY"),
		Copy("C5", "GLA"),
		Copy("C6", "BND"),
		Copy("C7", "GOR"),
		Copy("C8", "FEO"),
		Copy("AD", "ORT"),
		Copy("SE", "ESL"),
		Copy("DA", "ADA"),
		Copy("DB", "TDB"),
		Copy("M1", "LIE"),
		Derive("M3", "extra", one(extraNote)),
	}
}

func one(fn func(Record) string) func(Record) []string {
	return func(r Record) []string { return []string{fn(r)} }
}

// Map produces the exchange entry for one record: type, authors, corporate
// bodies, editors, parent work for chapters, then the declared rules.
func (m *Mapper) Map(r Record) ris.Entry {
	var e ris.Entry

	docType := Classify(r)
	e.Add(ris.TagType, string(docType))

	authors := Authors(r)
	for _, a := range authors {
		e.Add("A1", a)
	}
	for _, c := range CorporateBodies(r, authors) {
		e.Add("C1", c)
	}
	for _, ed := range Editors(r) {
		e.Add("ED", ed)
	}

	if docType == TypeChapter {
		parentTitle, parentEditors := ParentWork(r)
		if parentTitle != "" {
			e.Add("T2", parentTitle)
		}
		for _, ed := range parentEditors {
			e.Add("ED", ed)
		}
	}

	for _, rule := range m.rules {
		for _, v := range rule.values(r) {
			e.Add(rule.Tag, v)
		}
	}

	return e
}

// MapAll maps every record in order.
func (m *Mapper) MapAll(records []Record) []ris.Entry {
	entries := make([]ris.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, m.Map(r))
	}
	return entries
}

// Title joins HST with the cleaned ZUS subtitle.
func Title(r Record) string {
	var parts []string
	if hst := r.Get("HST"); hst != "" {
		parts = append(parts, hst)
	}
	if zus := r.Get("ZUS"); zus != "" {
		zus = strings.TrimSpace(angleAnnotationPattern.ReplaceAllString(zus, ""))
		zus = strings.ReplaceAll(zus, " : ", ". ")
		// A lone leading period goes, an ellipsis stays.
		zus = strings.TrimSpace(leadingPeriodPattern.ReplaceAllString(zus, "$1"))
		if zus != "" {
			parts = append(parts, zus)
		}
	}
	return strings.Join(parts, ". ")
}

// Authors resolves the primary creators: VER, else INS, else BET.
func Authors(r Record) []string {
	for _, code := range []string{"VER", "INS", "BET"} {
		if names := splitNames(r.Get(code)); len(names) > 0 {
			return names
		}
	}
	return nil
}

// CorporateBodies returns INS and UHE values that were not already used as
// authors, deduplicated in first-seen order. INS counts as the author list
// only when VER is empty and both hold the same members with equal length.
func CorporateBodies(r Record, authors []string) []string {
	var bodies []string

	if r.Has("INS") {
		ins := splitValues(r.Raw("INS"))
		if r.Has("VER") {
			bodies = append(bodies, ins...)
		} else {
			usedAsAuthors := len(authors) > 0 && len(ins) > 0 && sameMembers(ins, authors)
			if !usedAsAuthors {
				bodies = append(bodies, ins...)
			}
		}
	}
	if r.Has("UHE") {
		bodies = append(bodies, splitValues(r.Raw("UHE"))...)
	}

	seen := make(map[string]bool, len(bodies))
	out := bodies[:0]
	for _, b := range bodies {
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

// Editors returns PUH names plus a series editor taken from RHE after its
// first semicolon.
func Editors(r Record) []string {
	editors := splitNames(r.Raw("PUH"))
	if _, after, ok := strings.Cut(r.Raw("RHE"), ";"); ok {
		if after = strings.TrimSpace(after); after != "" {
			editors = append(editors, splitNames(after)...)
		}
	}
	return editors
}

// ParentWork parses AUS ("Title : Sub / Name (Hrsg.)") into the parent
// title and its editors.
func ParentWork(r Record) (string, []string) {
	aus := r.Get("AUS")
	if aus == "" {
		return "", nil
	}
	m := parentWorkPattern.FindStringSubmatch(aus)
	if m == nil {
		return "", nil
	}

	title := strings.ReplaceAll(strings.TrimSpace(m[1]), " : ", ". ")

	var editors []string
	if editorPart := m[2]; editorPart != "" {
		if em := parentEditorPattern.FindStringSubmatch(editorPart); em != nil {
			editors = splitNames(em[1])
		} else {
			editors = splitNames(editorPart)
		}
	}
	return title, editors
}

func abstract(r Record) string {
	var parts []string
	if abs := r.Get("ABS"); abs != "" {
		parts = append(parts, abs)
	}
	if gab := r.Get("GAB"); gab != "" {
		parts = append(parts, "Übersetzung Abstract: "+gab)
	}
	return strings.Join(parts, "\n")
}

// Keywords collects subject terms across all keyword fields with
// parenthetical comments removed.
func Keywords(r Record) []string {
	var keywords []string
	for _, code := range keywordFields {
		for _, kw := range splitValues(r.Raw(code)) {
			if kw = strings.TrimSpace(commentPattern.ReplaceAllString(kw, "")); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}

// identifier prefers ISBN, then ISSN, then the alternate ISB field.
func identifier(r Record) string {
	for _, code := range []string{"ISBN", "ISSN", "ISB"} {
		if v := r.Raw(code); v != "" {
			return v
		}
	}
	return ""
}

// Language extracts the presentation language from a composite LAN value
// such as "pres.:ger | orig.:lat".
func Language(lan string) string {
	m := languagePattern.FindStringSubmatch(lan)
	if m == nil {
		return ""
	}
	code := strings.ToLower(strings.TrimSpace(m[1]))
	if mapped, ok := languageCodes[code]; ok {
		return mapped
	}
	return code
}

func fullTextAllowed(r Record) bool {
	return r.Raw("URH") == "j"
}

func (m *Mapper) objectLink(r Record) string {
	if !fullTextAllowed(r) || !r.Has("OBJ") {
		return ""
	}
	return m.objectBaseURL + r.Get("OBJ")
}

func extraNote(r Record) string {
	var parts []string
	if r.Has("VERAM") {
		if names := splitValues(r.Raw("VERAM")); len(names) > 0 {
			parts = append(parts, "Verfasser: "+strings.Join(names, ", "))
		}
	}
	if r.Has("OBJ") && !fullTextAllowed(r) {
		parts = append(parts, "OBJ: "+pdfSuffixPattern.ReplaceAllString(r.Get("OBJ"), ""))
	}
	return strings.Join(parts, " | ")
}
