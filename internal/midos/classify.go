package midos

import "strings"

// DocType is an exchange-format reference type code.
type DocType string

const (
	TypeBook    DocType = "BOOK"
	TypeChapter DocType = "CHAP"
	TypeJournal DocType = "JOUR"
	TypeReport  DocType = "RPRT"
	TypeThesis  DocType = "THES"
	TypeConf    DocType = "CONF"
	TypeElec    DocType = "ELEC"
	TypeNews    DocType = "NEWS"
	TypeGeneric DocType = "GEN"
)

// Archival document type codes found in the DTY field.
const (
	codeMonograph   = "MO"
	codeChapter     = "AM"
	codeArticle     = "ZA"
	codePeriodical  = "ZS"
	codeCollective  = "SW"
	codeElectronic  = "EM"
	codeThesis      = "DS"
	codeStatistics  = "ST"
	codeConference  = "KO"
	codeGrey        = "GR"
	codeResearch    = "FO"
	codeNewspaper   = "ZE"
	codeNewsArticle = "ZT"
)

var docTypeTable = map[string]DocType{
	codeMonograph:   TypeBook,
	codeChapter:     TypeChapter,
	codeArticle:     TypeJournal,
	codePeriodical:  TypeJournal,
	codeCollective:  TypeBook,
	codeElectronic:  TypeElec,
	codeThesis:      TypeThesis,
	codeStatistics:  TypeReport,
	codeConference:  TypeConf,
	codeGrey:        TypeReport,
	codeResearch:    TypeReport,
	codeNewspaper:   TypeNews,
	codeNewsArticle: TypeNews,
}

// priorityOrder resolves records carrying more than one DTY code.
var priorityOrder = []string{
	codeStatistics,
	codeResearch,
	codeArticle,
	codeChapter,
	codeThesis,
	codeConference,
	codePeriodical,
	codeCollective,
	codeMonograph,
	codeElectronic,
}

var themedIssueMarkers = []string{"Themenheft", "Einzelbeiträge"}

// Classify resolves exactly one reference type for a record. The checks
// run in a fixed precedence order; reordering them changes results.
func Classify(r Record) DocType {
	codes := splitTypeCodes(r.Raw("DTY"))
	has := func(code string) bool {
		for _, c := range codes {
			if c == code {
				return true
			}
		}
		return false
	}
	hasISSN := r.Has("ISSN") || r.Has("ISN")

	// An edited volume rather than a chapter inside one.
	if has(codeCollective) {
		hasEditors := r.Has("PUH") || strings.Contains(r.Raw("RHE"), ";")
		if hasEditors && !r.Has("AUS") {
			return TypeBook
		}
	}

	if has(codePeriodical) && has(codeCollective) {
		desc := r.Raw("ZUS")
		for _, marker := range themedIssueMarkers {
			if strings.Contains(desc, marker) {
				return TypeBook
			}
		}
		return TypeJournal
	}

	if has(codeStatistics) && hasISSN {
		return TypeReport
	}

	if has(codeResearch) {
		return TypeReport
	}

	if len(codes) > 1 {
		for _, code := range priorityOrder {
			if !has(code) {
				continue
			}
			if code == codeMonograph && has(codeStatistics) && hasISSN {
				continue
			}
			return docTypeTable[code]
		}
	}

	for _, code := range codes {
		if t, ok := docTypeTable[code]; ok {
			return t
		}
	}

	switch {
	case r.Has("ISSN") || r.Has("ZNA"):
		return TypeJournal
	case r.Has("ISBN") || r.Has("ISB"):
		return TypeBook
	case r.Has("HSS") || strings.Contains(r.Raw("HST"), "Diss"):
		return TypeThesis
	case r.Has("KON"):
		return TypeConf
	}
	return TypeGeneric
}

func splitTypeCodes(dty string) []string {
	var codes []string
	for _, c := range strings.Split(dty, "|") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}
