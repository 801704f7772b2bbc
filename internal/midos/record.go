package midos

import "strings"

// Field is one "CODE: value" pair of an archival record.
type Field struct {
	Code  string
	Value string
}

// Record is an ordered field-code to value mapping built from one archival
// entry. Setting a code that already exists replaces its value in place.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a record from alternating code/value arguments.
func NewRecord(kv ...string) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

func (r *Record) Set(code, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if pos, ok := r.index[code]; ok {
		r.fields[pos].Value = value
		return
	}
	r.index[code] = len(r.fields)
	r.fields = append(r.fields, Field{Code: code, Value: value})
}

// Raw returns the stored value without trimming, or "" when absent.
func (r Record) Raw(code string) string {
	if pos, ok := r.index[code]; ok {
		return r.fields[pos].Value
	}
	return ""
}

// Get returns the trimmed value of code, or "" when absent.
func (r Record) Get(code string) string {
	return strings.TrimSpace(r.Raw(code))
}

// Has reports whether code carries a non-blank value.
func (r Record) Has(code string) bool {
	return r.Get(code) != ""
}

func (r Record) Len() int {
	return len(r.fields)
}

func (r Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}
