package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type ItemType string

const (
	ItemTypeJournalArticle   ItemType = "journalArticle"
	ItemTypeBook             ItemType = "book"
	ItemTypeBookSection      ItemType = "bookSection"
	ItemTypeConferencePaper  ItemType = "conferencePaper"
	ItemTypeThesis           ItemType = "thesis"
	ItemTypeReport           ItemType = "report"
	ItemTypeWebpage          ItemType = "webpage"
	ItemTypeNewspaperArticle ItemType = "newspaperArticle"
	ItemTypeMagazineArticle  ItemType = "magazineArticle"
	ItemTypeDocument         ItemType = "document"
	ItemTypeManuscript       ItemType = "manuscript"
	ItemTypePresentation     ItemType = "presentation"
	ItemTypePatent           ItemType = "patent"
	ItemTypeComputerProgram  ItemType = "computerProgram"
	ItemTypeAudioRecording   ItemType = "audioRecording"
	ItemTypeVideoRecording   ItemType = "videoRecording"
	ItemTypeNote             ItemType = "note"
	ItemTypeAttachment       ItemType = "attachment"
)

// Field names used by the group library item schema.
const (
	FieldTitle            = "title"
	FieldDate             = "date"
	FieldPublicationTitle = "publicationTitle"
	FieldBookTitle        = "bookTitle"
	FieldProceedingsTitle = "proceedingsTitle"
	FieldVolume           = "volume"
	FieldIssue            = "issue"
	FieldPages            = "pages"
	FieldNumPages         = "numPages"
	FieldISBN             = "ISBN"
	FieldISSN             = "ISSN"
	FieldDOI              = "DOI"
	FieldURL              = "url"
	FieldAbstract         = "abstractNote"
	FieldExtra            = "extra"
	FieldCallNumber       = "callNumber"
	FieldLanguage         = "language"
	FieldPublisher        = "publisher"
	FieldPlace            = "place"
	FieldSeries           = "series"
	FieldSeriesNumber     = "seriesNumber"
	FieldEdition          = "edition"
	FieldSection          = "section"
	FieldShortTitle       = "shortTitle"
	FieldAccessDate       = "accessDate"
)

type CreatorType string

const (
	CreatorAuthor      CreatorType = "author"
	CreatorEditor      CreatorType = "editor"
	CreatorContributor CreatorType = "contributor"
)

// Creator is either a structured (last, first) name or a single literal name.
type Creator struct {
	CreatorType CreatorType `json:"creatorType" yaml:"creatorType"`
	LastName    string      `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	FirstName   string      `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
}

// NewCreator parses "Last, First" into a structured name; anything without
// a comma is kept as a literal name.
func NewCreator(role CreatorType, value string) Creator {
	if last, first, ok := strings.Cut(value, ","); ok {
		return Creator{
			CreatorType: role,
			LastName:    strings.TrimSpace(last),
			FirstName:   strings.TrimSpace(first),
		}
	}
	return Creator{CreatorType: role, Name: value}
}

// DisplayName renders the creator the way it appears in exchange files.
func (c Creator) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.FirstName == "" {
		return c.LastName
	}
	return c.LastName + ", " + c.FirstName
}

// MarshalJSON writes a structured name as a lastName/firstName pair, with
// an empty firstName when there is none, and a literal name on its own.
func (c Creator) MarshalJSON() ([]byte, error) {
	if c.Name != "" {
		return json.Marshal(struct {
			CreatorType CreatorType `json:"creatorType"`
			Name        string      `json:"name"`
		}{c.CreatorType, c.Name})
	}
	return json.Marshal(struct {
		CreatorType CreatorType `json:"creatorType"`
		LastName    string      `json:"lastName"`
		FirstName   string      `json:"firstName"`
	}{c.CreatorType, c.LastName, c.FirstName})
}

func (c Creator) IsEmpty() bool {
	return c.Name == "" && c.LastName == "" && c.FirstName == ""
}

type Tag struct {
	Tag  string `json:"tag" yaml:"tag"`
	Type int    `json:"type,omitempty" yaml:"type,omitempty"`
}

// Item is a target-schema bibliographic item. Scalar fields live in Fields
// keyed by their schema name so per-type schemas can rename, relocate and
// prune them without a struct field per item type.
type Item struct {
	Key      string
	Version  int
	ItemType ItemType
	Creators []Creator
	Tags     []Tag
	Fields   map[string]string

	// Collective marks an edited volume; it is never sent to the server.
	Collective bool
}

func NewItem(itemType ItemType) *Item {
	return &Item{
		ItemType: itemType,
		Fields:   make(map[string]string),
	}
}

func (i *Item) Field(name string) string {
	if i.Fields == nil {
		return ""
	}
	return i.Fields[name]
}

func (i *Item) HasField(name string) bool {
	_, ok := i.Fields[name]
	return ok
}

func (i *Item) SetField(name, value string) {
	if i.Fields == nil {
		i.Fields = make(map[string]string)
	}
	i.Fields[name] = value
}

// TakeField removes the field and returns its previous value.
func (i *Item) TakeField(name string) (string, bool) {
	v, ok := i.Fields[name]
	if ok {
		delete(i.Fields, name)
	}
	return v, ok
}

func (i *Item) Title() string {
	return i.Field(FieldTitle)
}

// FieldNames returns the populated field names in sorted order.
func (i *Item) FieldNames() []string {
	names := make([]string, 0, len(i.Fields))
	for k := range i.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (i *Item) CreatorsOf(role CreatorType) []Creator {
	var out []Creator
	for _, c := range i.Creators {
		if c.CreatorType == role {
			out = append(out, c)
		}
	}
	return out
}

func (i *Item) AddTag(tag string) {
	i.Tags = append(i.Tags, Tag{Tag: tag})
}

// IsChild reports whether the item is a note or attachment rather than a
// bibliographic record.
func (i *Item) IsChild() bool {
	return i.ItemType == ItemTypeNote || i.ItemType == ItemTypeAttachment
}

func (i *Item) Clone() *Item {
	c := *i
	c.Creators = append([]Creator(nil), i.Creators...)
	c.Tags = append([]Tag(nil), i.Tags...)
	c.Fields = make(map[string]string, len(i.Fields))
	for k, v := range i.Fields {
		c.Fields[k] = v
	}
	return &c
}

// MarshalJSON renders the flat item object expected by the write API.
func (i Item) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(i.Fields)+5)
	for k, v := range i.Fields {
		obj[k] = v
	}
	obj["itemType"] = i.ItemType
	if len(i.Creators) > 0 {
		obj["creators"] = i.Creators
	}
	if len(i.Tags) > 0 {
		obj["tags"] = i.Tags
	}
	if i.Key != "" {
		obj["key"] = i.Key
	}
	if i.Version != 0 {
		obj["version"] = i.Version
	}
	return json.Marshal(obj)
}

// UnmarshalJSON accepts a flat item object. Non-string values other than
// creators and tags (collections, relations) are ignored.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Item{Fields: make(map[string]string)}
	for k, v := range raw {
		switch k {
		case "itemType":
			var t string
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("itemType: %w", err)
			}
			i.ItemType = ItemType(t)
		case "creators":
			if err := json.Unmarshal(v, &i.Creators); err != nil {
				return fmt.Errorf("creators: %w", err)
			}
		case "tags":
			if err := json.Unmarshal(v, &i.Tags); err != nil {
				return fmt.Errorf("tags: %w", err)
			}
		case "key":
			if err := json.Unmarshal(v, &i.Key); err != nil {
				return fmt.Errorf("key: %w", err)
			}
		case "version":
			if err := json.Unmarshal(v, &i.Version); err != nil {
				return fmt.Errorf("version: %w", err)
			}
		default:
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				i.Fields[k] = s
			}
		}
	}
	return nil
}

// Snapshot is the state of the remote collection at one version.
type Snapshot struct {
	Version string `json:"version"`
	Items   []Item `json:"items"`
}
