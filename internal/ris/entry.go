package ris

import (
	"errors"
	"regexp"
	"strings"
)

const (
	TagType = "TY"
	TagEnd  = "ER"

	// lineSeparator sits between tag and value on every line.
	lineSeparator = "  - "
)

var tagLinePattern = regexp.MustCompile(`^([A-Z][A-Z0-9])  -(?: (.*))?$`)

var (
	ErrEmptyContent = errors.New("exchange file is empty")
	ErrNoEntries    = errors.New("no entries found (missing TY line)")
)

// Line is one tagged line of an entry.
type Line struct {
	Tag   string
	Value string
}

// Entry is an ordered sequence of tagged lines. The terminating ER line is
// implied and added on output.
type Entry struct {
	Lines []Line
}

func (e *Entry) Add(tag, value string) {
	e.Lines = append(e.Lines, Line{Tag: tag, Value: value})
}

// Type returns the value of the first TY line.
func (e Entry) Type() string {
	for _, l := range e.Lines {
		if l.Tag == TagType {
			return l.Value
		}
	}
	return ""
}

// Values returns every value carried by tag, in order.
func (e Entry) Values(tag string) []string {
	var out []string
	for _, l := range e.Lines {
		if l.Tag == tag {
			out = append(out, l.Value)
		}
	}
	return out
}

// First returns the first value carried by tag.
func (e Entry) First(tag string) string {
	for _, l := range e.Lines {
		if l.Tag == tag {
			return l.Value
		}
	}
	return ""
}

// String renders the entry including its ER line, without a trailing newline.
func (e Entry) String() string {
	var b strings.Builder
	for _, l := range e.Lines {
		b.WriteString(l.Tag)
		b.WriteString(lineSeparator)
		b.WriteString(l.Value)
		b.WriteByte('\n')
	}
	b.WriteString(TagEnd)
	b.WriteString(lineSeparator)
	return b.String()
}

// Format concatenates entries, each followed by a newline.
func Format(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Parse reads concatenated entries. A TY line opens an entry and an ER line
// closes it; lines outside an entry and lines with an empty value are
// ignored. An untagged line inside an entry continues the value of the line
// before it, joined with a newline.
func Parse(content string) []Entry {
	var (
		entries []Entry
		current *Entry
	)

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, TagType+"  -"):
			if current != nil {
				entries = append(entries, *current)
			}
			current = &Entry{}
			current.Add(TagType, strings.TrimSpace(strings.TrimPrefix(line, TagType+"  -")))
		case strings.HasPrefix(line, TagEnd+"  -"):
			if current != nil {
				entries = append(entries, *current)
				current = nil
			}
		case current != nil:
			m := tagLinePattern.FindStringSubmatch(line)
			if m == nil {
				if n := len(current.Lines); n > 0 && line != "" {
					current.Lines[n-1].Value += "\n" + line
				}
				continue
			}
			if value := strings.TrimSpace(m[2]); value != "" {
				current.Add(m[1], value)
			}
		}
	}

	if current != nil {
		entries = append(entries, *current)
	}
	return entries
}

// Validate checks that content is non-empty and holds at least one entry.
// It returns the number of TY lines found.
func Validate(content string) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, ErrEmptyContent
	}
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, TagType+"  -") {
			count++
		}
	}
	if count == 0 {
		return 0, ErrNoEntries
	}
	return count, nil
}

// Split breaks content into chunks of at most size entries each, cutting
// only on TY boundaries.
func Split(content string, size int) []string {
	if size <= 0 {
		size = 100
	}

	var (
		blocks  []string
		current []string
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, TagType+"  -") && len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}

	var chunks []string
	for i := 0; i < len(blocks); i += size {
		end := i + size
		if end > len(blocks) {
			end = len(blocks)
		}
		chunks = append(chunks, strings.Join(blocks[i:end], "\n"))
	}
	return chunks
}
