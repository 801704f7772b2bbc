package midos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   DocType
	}{
		{
			name:   "chapter in monograph",
			record: NewRecord("DTY", "AM", "VER", "Mustermann, Max", "HST", "Beispieltitel", "KOL", "S. 1-22"),
			want:   TypeChapter,
		},
		{
			name:   "collective work with editor and no parent work",
			record: NewRecord("DTY", "SW", "PUH", "Herausgeber, H.", "HST", "Sammelband"),
			want:   TypeBook,
		},
		{
			name:   "collective work with series editor",
			record: NewRecord("DTY", "SW|AM", "RHE", "Schriftenreihe; Reihenherausgeber, R."),
			want:   TypeBook,
		},
		{
			name:   "collective work inside parent work falls through to priority",
			record: NewRecord("DTY", "SW|AM", "PUH", "Herausgeber, H.", "AUS", "Parent / X (Hrsg.)"),
			want:   TypeChapter,
		},
		{
			name:   "themed periodical issue",
			record: NewRecord("DTY", "ZS|SW", "ZUS", "Themenheft Hochschulpolitik"),
			want:   TypeBook,
		},
		{
			name:   "themed periodical issue with contributions marker",
			record: NewRecord("DTY", "ZS|SW", "ZUS", "mit Einzelbeiträgen"),
			want:   TypeBook,
		},
		{
			name:   "periodical issue without themed marker",
			record: NewRecord("DTY", "ZS|SW", "ZUS", "Jahrgang 3"),
			want:   TypeJournal,
		},
		{
			name:   "statistics with ISSN",
			record: NewRecord("DTY", "ST", "ISSN", "1234-5678"),
			want:   TypeReport,
		},
		{
			name:   "statistics with alternate ISSN field",
			record: NewRecord("DTY", "MO|ST", "ISN", "1234-5678"),
			want:   TypeReport,
		},
		{
			name:   "research report wins over article",
			record: NewRecord("DTY", "ZA|FO"),
			want:   TypeReport,
		},
		{
			name:   "priority prefers article over monograph",
			record: NewRecord("DTY", "MO|ZA"),
			want:   TypeJournal,
		},
		{
			name:   "priority prefers thesis over conference",
			record: NewRecord("DTY", "KO|DS"),
			want:   TypeThesis,
		},
		{
			name:   "priority with unknown and known code",
			record: NewRecord("DTY", "XX|EM"),
			want:   TypeElec,
		},
		{
			name:   "single newspaper code",
			record: NewRecord("DTY", "ZT"),
			want:   TypeNews,
		},
		{
			name:   "single grey literature code",
			record: NewRecord("DTY", " GR "),
			want:   TypeReport,
		},
		{
			name:   "fallback periodical title",
			record: NewRecord("DTY", "XX", "ZNA", "Die Hochschule"),
			want:   TypeJournal,
		},
		{
			name:   "fallback ISBN",
			record: NewRecord("ISB", "978-3-00-000000-0"),
			want:   TypeBook,
		},
		{
			name:   "fallback dissertation in title",
			record: NewRecord("HST", "Eine Untersuchung. Diss."),
			want:   TypeThesis,
		},
		{
			name:   "fallback dissertation marker",
			record: NewRecord("HSS", "Halle, Univ."),
			want:   TypeThesis,
		},
		{
			name:   "fallback conference notes",
			record: NewRecord("KON", "Tagung 2019"),
			want:   TypeConf,
		},
		{
			name:   "nothing matches",
			record: NewRecord("HST", "Ohne alles"),
			want:   TypeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.record))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	records := []Record{
		NewRecord("DTY", "ZS|SW|MO|ST", "ISSN", "1"),
		NewRecord("DTY", "SW", "PUH", "A; B"),
		NewRecord("HST", "Diss"),
	}
	for _, r := range records {
		first := Classify(r)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, Classify(r))
		}
	}
}
