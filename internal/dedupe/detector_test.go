package dedupe

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibsync/internal/entities"
)

func newItem(itemType entities.ItemType, fields map[string]string, creators ...string) entities.Item {
	item := entities.NewItem(itemType)
	for k, v := range fields {
		item.SetField(k, v)
	}
	for _, c := range creators {
		item.Creators = append(item.Creators, entities.NewCreator(entities.CreatorAuthor, c))
	}
	return *item
}

func snapshot(items ...entities.Item) entities.Snapshot {
	return entities.Snapshot{Version: "100", Items: items}
}

func detect(t *testing.T, candidate entities.Item, existing ...entities.Item) Result {
	t.Helper()
	return NewDetector(zerolog.Nop()).Detect([]entities.Item{candidate}, snapshot(existing...))
}

func TestDetect_DOIWithPrefix(t *testing.T) {
	existing := newItem(entities.ItemTypeJournalArticle, map[string]string{
		entities.FieldTitle: "Ganz anders",
		entities.FieldDOI:   "10.1/abc",
	})
	existing.Key = "EXIST001"
	candidate := newItem(entities.ItemTypeJournalArticle, map[string]string{
		entities.FieldTitle: "Neuer Titel",
		entities.FieldDOI:   "doi:10.1/abc",
	})

	result := detect(t, candidate, existing)
	require.Len(t, result.Duplicates, 1)
	assert.Empty(t, result.Unique)
	assert.Equal(t, MatchDOI, result.Duplicates[0].Kind)
	assert.Equal(t, "EXIST001", result.Duplicates[0].Existing.Key)
	assert.Contains(t, result.Duplicates[0].Note, "10.1/abc")
}

func TestDetect_DifferentDOIsNeverMatchByDOI(t *testing.T) {
	existing := newItem(entities.ItemTypeReport, map[string]string{
		entities.FieldTitle: "Gleicher Titel",
		entities.FieldDOI:   "10.1/abc",
	})
	candidate := newItem(entities.ItemTypeReport, map[string]string{
		entities.FieldTitle: "Gleicher Titel",
		entities.FieldDOI:   "10.1/xyz",
	})

	result := detect(t, candidate, existing)
	assert.Len(t, result.Unique, 1)
	assert.Empty(t, result.Duplicates)
}

func TestDetect_ISBN(t *testing.T) {
	existing := newItem(entities.ItemTypeBook, map[string]string{entities.FieldISBN: "978-3-16-148410-0"})
	candidate := newItem(entities.ItemTypeBook, map[string]string{entities.FieldISBN: "978 3 16 148410 0"})

	result := detect(t, candidate, existing)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, MatchISBN, result.Duplicates[0].Kind)
}

func TestDetect_TitleYearCreator(t *testing.T) {
	existing := newItem(entities.ItemTypeReport, map[string]string{
		entities.FieldTitle: "Hochschule  im Wandel",
		entities.FieldDate:  "2019",
	}, "Mustermann, Max")

	t.Run("whitespace and case differences match", func(t *testing.T) {
		candidate := newItem(entities.ItemTypeReport, map[string]string{
			entities.FieldTitle: "hochschule im WANDEL ",
			entities.FieldDate:  "2019-05-01",
		}, "mustermann, max.")
		result := detect(t, candidate, existing)
		require.Len(t, result.Duplicates, 1)
		assert.Equal(t, MatchTitleYearCreator, result.Duplicates[0].Kind)
	})

	t.Run("different year is unique", func(t *testing.T) {
		candidate := newItem(entities.ItemTypeReport, map[string]string{
			entities.FieldTitle: "Hochschule im Wandel",
			entities.FieldDate:  "2020",
		}, "Mustermann, Max")
		assert.Len(t, detect(t, candidate, existing).Unique, 1)
	})

	t.Run("no creator in common is unique", func(t *testing.T) {
		candidate := newItem(entities.ItemTypeReport, map[string]string{
			entities.FieldTitle: "Hochschule im Wandel",
			entities.FieldDate:  "2019",
		}, "Andere, Anna")
		assert.Len(t, detect(t, candidate, existing).Unique, 1)
	})
}

func TestDetect_SharedCreatorNoteIsStable(t *testing.T) {
	fields := map[string]string{entities.FieldTitle: "Gemeinsam", entities.FieldDate: "2010"}
	existing := newItem(entities.ItemTypeBook, fields, "Zeta, Z.", "Beta, B.", "Alpha, A.", "Gamma, G.")
	candidate := newItem(entities.ItemTypeBook, fields, "Gamma, G.", "Alpha, A.", "Beta, B.", "Zeta, Z.")

	for i := 0; i < 20; i++ {
		result := detect(t, candidate, existing)
		require.Len(t, result.Duplicates, 1)
		assert.Equal(t, `same title, year "2010" and creator "gamma, g"`, result.Duplicates[0].Note)
	}
}

func TestDetect_ContainerYearSimilarTitle(t *testing.T) {
	existing := newItem(entities.ItemTypeJournalArticle, map[string]string{
		entities.FieldTitle:            "a b c d e f g h i j k l m n o p q r s t",
		entities.FieldPublicationTitle: "Die Hochschule",
		entities.FieldDate:             "2005",
	})

	t.Run("above threshold", func(t *testing.T) {
		// 19 of 20 words shared: 19/20 = 0.95.
		candidate := newItem(entities.ItemTypeReport, map[string]string{
			entities.FieldTitle:            "a b c d e f g h i j k l m n o p q r s",
			entities.FieldPublicationTitle: "die hochschule",
			entities.FieldDate:             "2005",
		})
		result := detect(t, candidate, existing)
		require.Len(t, result.Duplicates, 1)
		assert.Equal(t, MatchSimilarTitle, result.Duplicates[0].Kind)
	})

	t.Run("below threshold", func(t *testing.T) {
		// 16 shared of 20 words: 16/20 = 0.8.
		candidate := newItem(entities.ItemTypeReport, map[string]string{
			entities.FieldTitle:            "a b c d e f g h i j k l m n o p",
			entities.FieldPublicationTitle: "Die Hochschule",
			entities.FieldDate:             "2005",
		})
		assert.Len(t, detect(t, candidate, existing).Unique, 1)
	})
}

func TestDetect_JournalFields(t *testing.T) {
	existing := newItem(entities.ItemTypeJournalArticle, map[string]string{
		entities.FieldTitle:            "Beitrag",
		entities.FieldPublicationTitle: "Zeitschrift",
		entities.FieldVolume:           "14",
		entities.FieldIssue:            "2",
	})

	t.Run("title plus volume and issue", func(t *testing.T) {
		candidate := newItem(entities.ItemTypeJournalArticle, map[string]string{
			entities.FieldTitle:            "beitrag",
			entities.FieldPublicationTitle: "Zeitschrift",
			entities.FieldVolume:           "14",
			entities.FieldIssue:            "2",
			entities.FieldDate:             "2005",
		})
		result := detect(t, candidate, existing)
		require.Len(t, result.Duplicates, 1)
		assert.Equal(t, MatchJournalFields, result.Duplicates[0].Kind)
	})

	t.Run("title alone is not enough", func(t *testing.T) {
		candidate := newItem(entities.ItemTypeJournalArticle, map[string]string{
			entities.FieldTitle:            "Beitrag",
			entities.FieldPublicationTitle: "Zeitschrift",
			entities.FieldVolume:           "15",
			entities.FieldIssue:            "2",
			entities.FieldDate:             "2005",
		})
		assert.Len(t, detect(t, candidate, existing).Unique, 1)
	})

	t.Run("other item types never match", func(t *testing.T) {
		candidate := newItem(entities.ItemTypeMagazineArticle, map[string]string{
			entities.FieldTitle:            "Beitrag",
			entities.FieldPublicationTitle: "Zeitschrift",
			entities.FieldVolume:           "14",
			entities.FieldIssue:            "2",
			entities.FieldDate:             "2005",
		})
		assert.Len(t, detect(t, candidate, existing).Unique, 1)
	})
}

func TestDetect_BookSection(t *testing.T) {
	existing := newItem(entities.ItemTypeBookSection, map[string]string{
		entities.FieldTitle:     "Kapitel",
		entities.FieldBookTitle: "Handbuch",
		entities.FieldDate:      "2019",
	}, "Eins, E.")

	candidate := newItem(entities.ItemTypeBookSection, map[string]string{
		entities.FieldTitle:     "Kapitel",
		entities.FieldBookTitle: "Handbuch",
		entities.FieldDate:      "2019",
	}, "Zwei, Z.")
	result := detect(t, candidate, existing)
	require.Len(t, result.Duplicates, 1)
	// Identical titles already satisfy the similarity rule, which is checked first.
	assert.Equal(t, MatchSimilarTitle, result.Duplicates[0].Kind)

	candidate.SetField(entities.FieldDate, "2020")
	assert.Len(t, detect(t, candidate, existing).Unique, 1)
}

func TestCompare_BookSectionRule(t *testing.T) {
	d := NewDetector(zerolog.Nop(), WithSimilarity(1.1))
	a := newItem(entities.ItemTypeBookSection, map[string]string{
		entities.FieldTitle:     "Kapitel",
		entities.FieldBookTitle: "Handbuch",
		entities.FieldDate:      "2019",
	})
	b := a.Clone()

	kind, _, ok := d.compare(newFingerprint(&a), newFingerprint(b))
	require.True(t, ok)
	assert.Equal(t, MatchBookSection, kind)
}

func TestDetect_SkipsChildItems(t *testing.T) {
	note := newItem(entities.ItemTypeNote, map[string]string{entities.FieldDOI: "10.1/abc"})
	candidate := newItem(entities.ItemTypeJournalArticle, map[string]string{entities.FieldDOI: "10.1/abc"})

	assert.Len(t, detect(t, candidate, note).Unique, 1)
}

func TestDetect_WithinBatch(t *testing.T) {
	a := newItem(entities.ItemTypeJournalArticle, map[string]string{entities.FieldDOI: "10.1/abc"})
	b := newItem(entities.ItemTypeJournalArticle, map[string]string{entities.FieldDOI: "https://doi.org/10.1/ABC"})

	plain := NewDetector(zerolog.Nop()).Detect([]entities.Item{a, b}, snapshot())
	assert.Len(t, plain.Unique, 2)

	batch := NewDetector(zerolog.Nop(), WithinBatch(true)).Detect([]entities.Item{a, b}, snapshot())
	assert.Len(t, batch.Unique, 1)
	require.Len(t, batch.Duplicates, 1)
	assert.Equal(t, MatchDOI, batch.Duplicates[0].Kind)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "10.1/abc", NormalizeDOI(" DOI:10.1/ABC"))
	assert.Equal(t, "10.1/abc", NormalizeDOI("http://dx.doi.org/10.1/abc"))
	assert.Equal(t, "1234567X", NormalizeIdentifier("1234-567x"))
	assert.Equal(t, "2019", Year("Mai 2019"))
	assert.Equal(t, "", Year("o.J."))
	assert.Equal(t, "institut für hochschulforschung",
		NormalizeCreator(entities.Creator{Name: " Institut  für Hochschulforschung."}))
}
