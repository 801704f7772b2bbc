package ris

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/entities"
)

type targetKind int

const (
	kindField targetKind = iota
	kindCreator
	kindTag
	kindExtra
	kindTitle
	kindSubtitle
	kindStartPage
	kindEndPage
	kindPageRange
	kindDate
)

type target struct {
	kind  targetKind
	field string
}

func toField(name string) target { return target{kind: kindField, field: name} }

var (
	creatorTarget = target{kind: kindCreator}
	extraTarget   = target{kind: kindExtra}
	dateTarget    = target{kind: kindDate}
	urlTarget     = toField(entities.FieldURL)
	pubTarget     = toField(entities.FieldPublicationTitle)
	abstractField = toField(entities.FieldAbstract)
	placeTarget   = toField(entities.FieldPlace)
	callNumTarget = toField(entities.FieldCallNumber)
)

var tagTable = map[string]target{
	"TI": {kind: kindTitle},
	"T1": {kind: kindTitle},
	"T2": pubTarget,
	"T3": toField(entities.FieldSeries),
	"T4": {kind: kindSubtitle},
	"AU": creatorTarget,
	"A1": creatorTarget,
	"A2": creatorTarget,
	"A3": creatorTarget,
	"ED": creatorTarget,
	"PY": dateTarget,
	"Y1": dateTarget,
	"DA": dateTarget,
	"JO": pubTarget,
	"JF": pubTarget,
	"JA": pubTarget,
	"VL": toField(entities.FieldVolume),
	"IS": toField(entities.FieldIssue),
	"IP": toField(entities.FieldIssue),
	"SP": {kind: kindStartPage},
	"EP": {kind: kindEndPage},
	"C3": {kind: kindPageRange},
	"PB": toField(entities.FieldPublisher),
	"CY": placeTarget,
	"PP": placeTarget,
	"SN": toField(entities.FieldISSN),
	"BN": toField(entities.FieldISBN),
	"UR": urlTarget,
	"L1": urlTarget,
	"L2": urlTarget,
	"AB": abstractField,
	"N2": abstractField,
	"KW": {kind: kindTag},
	"DO": toField(entities.FieldDOI),
	"LA": toField(entities.FieldLanguage),
	"CN": callNumTarget,
	"H2": callNumTarget,
	"ET": toField(entities.FieldEdition),
	"NV": toField(entities.FieldSeriesNumber),
	"SE": toField(entities.FieldSection),
	"ST": toField(entities.FieldShortTitle),
	"Y2": toField(entities.FieldAccessDate),
	"N1": extraTarget,
	"M1": extraTarget,
	"M2": extraTarget,
	"M3": extraTarget,
	"AD": extraTarget,
	"AN": extraTarget,
	"AV": extraTarget,
	"C1": extraTarget,
	"C2": extraTarget,
	"CA": extraTarget,
	"DB": extraTarget,
	"DP": extraTarget,
	"ID": extraTarget,
	"OP": extraTarget,
	"RP": extraTarget,
	"TA": extraTarget,
	"TT": extraTarget,
	"U1": extraTarget,
	"U2": extraTarget,
	"U3": extraTarget,
	"U4": extraTarget,
	"U5": extraTarget,
}

var typeTable = map[string]entities.ItemType{
	"JOUR":    entities.ItemTypeJournalArticle,
	"BOOK":    entities.ItemTypeBook,
	"CHAP":    entities.ItemTypeBookSection,
	"CONF":    entities.ItemTypeConferencePaper,
	"THES":    entities.ItemTypeThesis,
	"RPRT":    entities.ItemTypeReport,
	"WEB":     entities.ItemTypeWebpage,
	"NEWS":    entities.ItemTypeNewspaperArticle,
	"MGZN":    entities.ItemTypeMagazineArticle,
	"ABST":    entities.ItemTypeJournalArticle,
	"ADVS":    "audiovisualMaterial",
	"AGGR":    entities.ItemTypeJournalArticle,
	"ANCIENT": entities.ItemTypeManuscript,
	"ART":     "artwork",
	"BILL":    "bill",
	"BLOG":    "blogPost",
	"CASE":    "case",
	"CTLG":    "catalog",
	"DATA":    "dataset",
	"DBASE":   entities.ItemTypeComputerProgram,
	"DICT":    "dictionaryEntry",
	"EBOOK":   entities.ItemTypeBook,
	"ECHAP":   entities.ItemTypeBookSection,
	"EDBOOK":  entities.ItemTypeBook,
	"EJOUR":   entities.ItemTypeJournalArticle,
	"ELEC":    entities.ItemTypeDocument,
	"ENCYC":   "encyclopediaArticle",
	"EQUA":    "equation",
	"FIGURE":  "figure",
	"GEN":     entities.ItemTypeReport,
	"GOVDOC":  entities.ItemTypeReport,
	"GRANT":   entities.ItemTypeDocument,
	"HEAR":    "hearing",
	"ICOMM":   entities.ItemTypeDocument,
	"INPR":    entities.ItemTypeDocument,
	"JFULL":   entities.ItemTypeJournalArticle,
	"LEGAL":   entities.ItemTypeDocument,
	"MANSCPT": entities.ItemTypeManuscript,
	"MAP":     "map",
	"MULTI":   entities.ItemTypeDocument,
	"MUSIC":   entities.ItemTypeAudioRecording,
	"PAMP":    entities.ItemTypeDocument,
	"PAT":     entities.ItemTypePatent,
	"PCOMM":   "letter",
	"SLIDE":   entities.ItemTypePresentation,
	"SOUND":   entities.ItemTypeAudioRecording,
	"STAND":   entities.ItemTypeDocument,
	"STAT":    "statute",
	"UNBILL":  "bill",
	"UNPB":    entities.ItemTypeDocument,
	"VIDEO":   entities.ItemTypeVideoRecording,

	"SAMMELBAND": entities.ItemTypeBook,
	"SAMMLUNG":   entities.ItemTypeBook,
	"EDITED":     entities.ItemTypeBook,
	"ANTHOLOGY":  entities.ItemTypeBook,
}

// collectiveTypes mark an edited volume.
var collectiveTypes = map[string]bool{
	"SAMMELBAND": true,
	"SAMMLUNG":   true,
	"EDITED":     true,
	"ANTHOLOGY":  true,
	"EDBOOK":     true,
}

// CollectiveMarker is written first into the extra notes of edited volumes.
const CollectiveMarker = "Type: Sammelband"

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ItemTypeFor maps an exchange type code to an item type, defaulting to
// journalArticle.
func ItemTypeFor(code string) entities.ItemType {
	if t, ok := typeTable[code]; ok {
		return t
	}
	return entities.ItemTypeJournalArticle
}

// Stats summarizes what a Builder produced.
type Stats struct {
	Entries      int                       `json:"entries"`
	Collective   int                       `json:"collective"`
	ItemTypes    map[entities.ItemType]int `json:"item_types"`
	Authors      int                       `json:"authors"`
	Editors      int                       `json:"editors"`
	Contributors int                       `json:"contributors"`
	TagCounts    map[string]int            `json:"tag_counts"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopTags returns the n most frequent exchange tags.
func (s Stats) TopTags(n int) []TagCount {
	out := make([]TagCount, 0, len(s.TagCounts))
	for tag, count := range s.TagCounts {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Builder turns exchange entries into target items.
type Builder struct {
	logger zerolog.Logger
	stats  Stats
}

func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{
		logger: logger,
		stats: Stats{
			ItemTypes: make(map[entities.ItemType]int),
			TagCounts: make(map[string]int),
		},
	}
}

func (b *Builder) Stats() Stats {
	return b.stats
}

// BuildAll builds one item per entry, in order.
func (b *Builder) BuildAll(entries []Entry) []entities.Item {
	items := make([]entities.Item, 0, len(entries))
	for i, e := range entries {
		items = append(items, b.Build(e))
		if (i+1)%50 == 0 {
			b.logger.Info().Int("built", i+1).Int("total", len(entries)).Msg("building items")
		}
	}
	b.logger.Info().
		Int("items", len(items)).
		Int("collective", b.stats.Collective).
		Interface("item_types", b.stats.ItemTypes).
		Int("authors", b.stats.Authors).
		Int("editors", b.stats.Editors).
		Int("contributors", b.stats.Contributors).
		Interface("top_tags", b.stats.TopTags(10)).
		Msg("items built")
	return items
}

// draft holds per-entry state that only resolves at finalization.
type draft struct {
	item      *entities.Item
	subtitle  string
	startPage string
	endPage   string
	pageRange string
	extra     []string
}

// Build converts one entry into an item.
func (b *Builder) Build(e Entry) entities.Item {
	code := e.Type()
	d := &draft{item: entities.NewItem(ItemTypeFor(code))}
	d.item.Collective = collectiveTypes[code]

	b.stats.Entries++
	b.stats.ItemTypes[d.item.ItemType]++

	for _, line := range e.Lines {
		if line.Tag == TagType || line.Value == "" {
			continue
		}
		b.stats.TagCounts[line.Tag]++
		b.apply(d, line)
	}

	item := b.finalize(d)
	if item.Collective {
		b.stats.Collective++
	}
	return item
}

func (b *Builder) apply(d *draft, line Line) {
	t, ok := tagTable[line.Tag]
	if !ok {
		d.extra = append(d.extra, fmt.Sprintf("%s: %s", line.Tag, line.Value))
		return
	}

	item := d.item
	switch t.kind {
	case kindCreator:
		item.Creators = append(item.Creators, entities.NewCreator(b.roleFor(item, line.Tag), line.Value))
	case kindTag:
		item.AddTag(line.Value)
	case kindExtra:
		d.extra = append(d.extra, line.Value)
	case kindTitle:
		if d.subtitle != "" {
			item.SetField(entities.FieldTitle, line.Value+". "+d.subtitle)
			d.subtitle = ""
		} else {
			item.SetField(entities.FieldTitle, line.Value)
		}
	case kindSubtitle:
		if title := item.Title(); title != "" {
			item.SetField(entities.FieldTitle, title+". "+line.Value)
		} else {
			d.subtitle = line.Value
		}
	case kindStartPage:
		d.startPage = line.Value
	case kindEndPage:
		d.endPage = line.Value
	case kindPageRange:
		d.pageRange = line.Value
	case kindDate:
		if item.Field(entities.FieldDate) == "" {
			if year := yearPattern.FindString(line.Value); year != "" {
				item.SetField(entities.FieldDate, year)
			} else {
				item.SetField(entities.FieldDate, line.Value)
			}
		}
	default:
		item.SetField(t.field, line.Value)
	}
}

// roleFor decides a creator's role once, from its tag. Unmarked creators
// of an edited volume become editors until an editor exists.
func (b *Builder) roleFor(item *entities.Item, tag string) entities.CreatorType {
	switch tag {
	case "A2", "ED":
		b.stats.Editors++
		return entities.CreatorEditor
	case "A3":
		b.stats.Contributors++
		return entities.CreatorContributor
	}
	if item.Collective && len(item.CreatorsOf(entities.CreatorEditor)) == 0 {
		b.stats.Editors++
		return entities.CreatorEditor
	}
	b.stats.Authors++
	return entities.CreatorAuthor
}

func (b *Builder) finalize(d *draft) entities.Item {
	item := d.item
	schema := SchemaFor(item.ItemType)

	if d.subtitle != "" && item.Title() == "" {
		item.SetField(entities.FieldTitle, d.subtitle)
	}

	applyPages(item, schema, d)

	extra := d.extra
	if item.Collective {
		extra = append([]string{CollectiveMarker}, extra...)
	}
	if len(extra) > 0 && schema.Allows(entities.FieldExtra) {
		parts := dedupe(extra)
		if existing := item.Field(entities.FieldExtra); existing != "" {
			parts = append([]string{existing}, parts...)
		}
		item.SetField(entities.FieldExtra, strings.ReplaceAll(strings.Join(parts, "\n"), " | ", "\n"))
	}

	for _, r := range schema.Renames {
		if v, ok := item.TakeField(r.From); ok {
			item.SetField(r.To, v)
		}
	}
	if schema.PromoteAuthors && item.Collective && len(item.CreatorsOf(entities.CreatorEditor)) == 0 {
		for i := range item.Creators {
			if item.Creators[i].CreatorType == entities.CreatorAuthor {
				item.Creators[i].CreatorType = entities.CreatorEditor
			}
		}
	}
	for _, f := range schema.Drops {
		delete(item.Fields, f)
	}
	relocate(item, schema.Relocations)

	for name := range item.Fields {
		if !schema.Allows(name) {
			b.logger.Debug().Str("field", name).Str("item_type", string(item.ItemType)).Msg("pruning field")
			delete(item.Fields, name)
		}
	}

	creators := item.Creators[:0]
	for _, c := range item.Creators {
		if !c.IsEmpty() {
			creators = append(creators, c)
		}
	}
	item.Creators = creators
	if len(item.Creators) == 0 {
		item.Creators = nil
	}
	if len(item.Tags) == 0 {
		item.Tags = nil
	}

	return *item
}

// applyPages routes the page statements. A start page containing a comma is
// read as a front-matter plus body count ("XVI, 198"), anything else as a
// page range.
func applyPages(item *entities.Item, schema Schema, d *draft) {
	allowsPages := schema.Allows(entities.FieldPages)
	if !allowsPages && !schema.Allows(entities.FieldNumPages) {
		return
	}

	switch {
	case d.startPage != "" && strings.Contains(d.startPage, ","):
		if schema.Allows(entities.FieldNumPages) {
			item.SetField(entities.FieldNumPages, d.startPage)
		}
		if d.pageRange != "" && allowsPages {
			item.SetField(entities.FieldPages, d.pageRange)
		}
	case d.startPage != "":
		if allowsPages {
			item.SetField(entities.FieldPages, joinNonEmpty(", ", d.pageRange, d.startPage))
		}
	case d.endPage != "" && allowsPages:
		item.SetField(entities.FieldPages, joinNonEmpty(", ", d.pageRange, d.endPage))
	}
}

func relocate(item *entities.Item, relocations []Relocation) {
	var moved []string
	for _, r := range relocations {
		if v, ok := item.TakeField(r.Field); ok {
			moved = append(moved, r.Label+": "+v)
		}
	}
	if len(moved) == 0 {
		return
	}
	if existing := item.Field(entities.FieldExtra); existing != "" {
		moved = append([]string{existing}, moved...)
	}
	item.SetField(entities.FieldExtra, strings.Join(moved, "\n"))
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
