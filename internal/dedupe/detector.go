package dedupe

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/entities"
)

type MatchKind string

const (
	MatchDOI              MatchKind = "doi"
	MatchISBN             MatchKind = "isbn"
	MatchTitleYearCreator MatchKind = "title_year_creator"
	MatchSimilarTitle     MatchKind = "container_year_similar_title"
	MatchJournalFields    MatchKind = "journal_fields"
	MatchBookSection      MatchKind = "book_section"
)

// DefaultSimilarity is the title word-set Jaccard threshold of the
// container+year rule.
const DefaultSimilarity = 0.85

// Match records why a candidate was judged a duplicate of an existing item.
type Match struct {
	Candidate entities.Item `json:"candidate" yaml:"candidate"`
	Existing  entities.Item `json:"existing" yaml:"existing"`
	Kind      MatchKind     `json:"kind" yaml:"kind"`
	Note      string        `json:"note" yaml:"note"`
}

type Result struct {
	Unique     []entities.Item `json:"unique"`
	Duplicates []Match         `json:"duplicates"`
}

type Option func(*Detector)

// WithinBatch also compares each candidate against earlier unique
// candidates of the same run.
func WithinBatch(enabled bool) Option {
	return func(d *Detector) { d.withinBatch = enabled }
}

func WithSimilarity(threshold float64) Option {
	return func(d *Detector) {
		if threshold > 0 {
			d.similarity = threshold
		}
	}
}

// Detector separates candidates already present in a collection from new ones.
type Detector struct {
	logger      zerolog.Logger
	similarity  float64
	withinBatch bool
}

func NewDetector(logger zerolog.Logger, opts ...Option) *Detector {
	d := &Detector{logger: logger, similarity: DefaultSimilarity}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type indexed struct {
	item *entities.Item
	fp   fingerprint
}

// Detect compares every candidate against the snapshot items in snapshot
// order, applying the rules in order for each pair. Notes and attachments
// in the snapshot are ignored.
func (d *Detector) Detect(candidates []entities.Item, snapshot entities.Snapshot) Result {
	existing := make([]indexed, 0, len(snapshot.Items))
	for i := range snapshot.Items {
		item := &snapshot.Items[i]
		if item.IsChild() {
			continue
		}
		existing = append(existing, indexed{item: item, fp: newFingerprint(item)})
	}

	var result Result
	for i := range candidates {
		cand := &candidates[i]
		fp := newFingerprint(cand)

		match, ok := d.firstMatch(cand, fp, existing)
		if ok {
			d.logger.Debug().
				Str("title", cand.Title()).
				Str("kind", string(match.Kind)).
				Str("existing_key", match.Existing.Key).
				Msg("duplicate found")
			result.Duplicates = append(result.Duplicates, match)
			continue
		}

		result.Unique = append(result.Unique, *cand)
		if d.withinBatch {
			existing = append(existing, indexed{item: cand, fp: fp})
		}
	}

	d.logger.Info().
		Int("candidates", len(candidates)).
		Int("existing", len(existing)).
		Int("unique", len(result.Unique)).
		Int("duplicates", len(result.Duplicates)).
		Msg("duplicate detection finished")
	return result
}

func (d *Detector) firstMatch(cand *entities.Item, fp fingerprint, existing []indexed) (Match, bool) {
	for _, ex := range existing {
		if kind, note, ok := d.compare(fp, ex.fp); ok {
			return Match{Candidate: *cand, Existing: *ex.item, Kind: kind, Note: note}, true
		}
	}
	return Match{}, false
}

// compare applies the match rules in order; the first that holds wins.
func (d *Detector) compare(a, b fingerprint) (MatchKind, string, bool) {
	if a.doi != "" && a.doi == b.doi {
		return MatchDOI, fmt.Sprintf("same DOI %s", a.doi), true
	}

	if a.isbn != "" && a.isbn == b.isbn {
		return MatchISBN, fmt.Sprintf("same ISBN %s", a.isbn), true
	}

	if a.title != "" && a.title == b.title && a.year == b.year {
		if name, ok := sharedCreator(a, b); ok {
			return MatchTitleYearCreator, fmt.Sprintf("same title, year %q and creator %q", a.year, name), true
		}
	}

	if a.container != "" && a.container == b.container && a.year == b.year {
		if score := jaccard(a.words, b.words); score >= d.similarity {
			return MatchSimilarTitle, fmt.Sprintf("same container and year, title similarity %.2f", score), true
		}
	}

	if a.itemType == entities.ItemTypeJournalArticle && b.itemType == entities.ItemTypeJournalArticle &&
		a.container != "" && a.container == b.container && a.title != "" && a.title == b.title {
		var agreeing []string
		if a.volume != "" && a.volume == b.volume && a.issue == b.issue {
			agreeing = append(agreeing, "volume+issue")
		}
		if a.pages != "" && a.pages == b.pages {
			agreeing = append(agreeing, "pages")
		}
		if a.year != "" && a.year == b.year {
			agreeing = append(agreeing, "year")
		}
		if len(agreeing) > 0 {
			return MatchJournalFields, fmt.Sprintf("same journal and title, also %v", agreeing), true
		}
	}

	if a.itemType == entities.ItemTypeBookSection && b.itemType == entities.ItemTypeBookSection &&
		a.title != "" && a.title == b.title && a.container != "" && a.container == b.container && a.year == b.year {
		return MatchBookSection, "same chapter title, book title and year", true
	}

	return "", "", false
}

// sharedCreator returns the first creator of a, in item order, that b also has.
func sharedCreator(a, b fingerprint) (string, bool) {
	for _, name := range a.names {
		if b.creators[name] {
			return name, true
		}
	}
	return "", false
}
