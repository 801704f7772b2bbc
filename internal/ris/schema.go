package ris

import "github.com/mrlokans/bibsync/internal/entities"

// Rename moves a field to the name the target item type uses for it.
type Rename struct {
	From string
	To   string
}

// Relocation moves a field the item type cannot hold into the extra notes
// as "Label: value".
type Relocation struct {
	Field string
	Label string
}

// Schema lists what an item type accepts and how foreign fields are
// reconciled with it. Renames run before drops, drops before relocations.
type Schema struct {
	Allowed     map[string]bool
	Renames     []Rename
	Drops       []string
	Relocations []Relocation

	// PromoteAuthors turns authors into editors for an edited volume that
	// ended up without any editor.
	PromoteAuthors bool
}

func (s Schema) Allows(field string) bool {
	return s.Allowed[field]
}

func fieldSet(fields ...string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

const (
	fTitle      = entities.FieldTitle
	fCreators   = "creators"
	fTags       = "tags"
	fDate       = entities.FieldDate
	fURL        = entities.FieldURL
	fAbstract   = entities.FieldAbstract
	fLanguage   = entities.FieldLanguage
	fExtra      = entities.FieldExtra
	fCallNumber = entities.FieldCallNumber
	fPlace      = entities.FieldPlace
	fPages      = entities.FieldPages
)

var schemas = map[entities.ItemType]Schema{
	entities.ItemTypeJournalArticle: {
		Allowed: fieldSet(fTitle, fCreators, entities.FieldPublicationTitle, entities.FieldVolume, entities.FieldIssue,
			fPages, fDate, entities.FieldISSN, fURL, fAbstract, fTags, entities.FieldDOI, fLanguage, fExtra, fCallNumber),
		Drops: []string{fPlace, entities.FieldPublisher},
	},
	entities.ItemTypeBook: {
		Allowed: fieldSet(fTitle, fCreators, entities.FieldPublisher, fPlace, fDate, entities.FieldISBN, fURL, fAbstract,
			fTags, fLanguage, entities.FieldNumPages, entities.FieldSeries, entities.FieldSeriesNumber,
			entities.FieldEdition, fExtra, fCallNumber),
		Renames:        []Rename{{From: entities.FieldISSN, To: entities.FieldISBN}},
		Drops:          []string{entities.FieldPublicationTitle, entities.FieldVolume, entities.FieldIssue, fPages},
		PromoteAuthors: true,
	},
	entities.ItemTypeBookSection: {
		Allowed: fieldSet(fTitle, fCreators, entities.FieldBookTitle, entities.FieldPublisher, fPlace, fDate, fPages,
			entities.FieldISBN, fURL, fAbstract, fTags, fLanguage, entities.FieldSeries, entities.FieldSeriesNumber,
			entities.FieldEdition, fExtra, fCallNumber),
		Renames: []Rename{{From: entities.FieldPublicationTitle, To: entities.FieldBookTitle}},
		Drops:   []string{entities.FieldISSN, entities.FieldVolume, entities.FieldIssue},
	},
	entities.ItemTypeConferencePaper: {
		Allowed: fieldSet(fTitle, fCreators, entities.FieldProceedingsTitle, fPlace, fDate, fPages, fURL, fAbstract,
			fTags, entities.FieldDOI, fLanguage, "conferenceName", fExtra, fCallNumber),
		Renames: []Rename{{From: entities.FieldPublicationTitle, To: entities.FieldProceedingsTitle}},
		Drops:   []string{entities.FieldISSN, entities.FieldVolume, entities.FieldIssue},
	},
	entities.ItemTypeThesis: {
		Allowed: fieldSet(fTitle, fCreators, "university", fPlace, fDate, "thesisType", fURL, fAbstract, fTags,
			fLanguage, fExtra, fCallNumber),
	},
	entities.ItemTypeReport: {
		Allowed: fieldSet(fTitle, fCreators, "institution", fPlace, fDate, "reportNumber", fURL, fAbstract, fTags,
			fLanguage, "reportType", fExtra, fCallNumber),
		Relocations: notesRelocations,
	},
	entities.ItemTypeWebpage: {
		Allowed: fieldSet(fTitle, fCreators, "websiteTitle", fURL, entities.FieldAccessDate, fAbstract, fTags,
			fLanguage, fExtra),
	},
	entities.ItemTypeNewspaperArticle: {
		Allowed: fieldSet(fTitle, fCreators, entities.FieldPublicationTitle, fPlace, fDate, fPages, fURL, fAbstract,
			fTags, fLanguage, entities.FieldSection, entities.FieldEdition, fExtra, fCallNumber),
	},
	entities.ItemTypeMagazineArticle: {
		Allowed: fieldSet(fTitle, fCreators, entities.FieldPublicationTitle, fDate, fPages, entities.FieldISSN, fURL,
			fAbstract, fTags, fLanguage, fExtra, fCallNumber),
	},
	entities.ItemTypeDocument: {
		Allowed: fieldSet(fTitle, fCreators, entities.FieldPublisher, fDate, fURL, fAbstract, fTags, fLanguage,
			fExtra, fCallNumber),
		Relocations: notesRelocations,
	},
	entities.ItemTypeManuscript: {
		Allowed: fieldSet(fTitle, fCreators, fPlace, fDate, "manuscriptType", fURL, fAbstract, fTags, fLanguage,
			fExtra, fCallNumber),
	},
	entities.ItemTypePresentation: {
		Allowed: fieldSet(fTitle, fCreators, "presentationType", fPlace, fDate, fURL, fAbstract, fTags, fLanguage,
			fExtra),
	},
	entities.ItemTypePatent: {
		Allowed: fieldSet(fTitle, fCreators, "country", "assignee", "patentNumber", "priorityNumbers", fDate, fURL,
			fAbstract, fTags, fLanguage, fExtra),
	},
	entities.ItemTypeComputerProgram: {
		Allowed: fieldSet(fTitle, fCreators, "company", fPlace, fDate, "programmingLanguage", "system", fURL,
			fAbstract, fTags, fLanguage, fExtra),
	},
	entities.ItemTypeAudioRecording: {
		Allowed: fieldSet(fTitle, fCreators, "label", fPlace, fDate, "runningTime", fURL, fAbstract, fTags,
			fLanguage, fExtra),
	},
	entities.ItemTypeVideoRecording: {
		Allowed: fieldSet(fTitle, fCreators, "studio", fPlace, fDate, "runningTime", fURL, fAbstract, fTags,
			fLanguage, fExtra),
	},
}

// notesRelocations is shared by document and report.
var notesRelocations = []Relocation{
	{Field: fPlace, Label: "Place"},
	{Field: entities.FieldSeries, Label: "Series"},
	{Field: entities.FieldSeriesNumber, Label: entities.FieldSeriesNumber},
	{Field: fPages, Label: "Pages"},
	{Field: entities.FieldVolume, Label: entities.FieldVolume},
	{Field: entities.FieldIssue, Label: entities.FieldIssue},
	{Field: entities.FieldISSN, Label: entities.FieldISSN},
	{Field: entities.FieldISBN, Label: entities.FieldISBN},
	{Field: entities.FieldDOI, Label: "DOI"},
}

// SchemaFor returns the schema of t. Types without their own schema accept
// the journal article field set and get no reconciliation.
func SchemaFor(t entities.ItemType) Schema {
	if s, ok := schemas[t]; ok {
		return s
	}
	return Schema{Allowed: schemas[entities.ItemTypeJournalArticle].Allowed}
}
