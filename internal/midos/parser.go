package midos

import "strings"

// RecordSeparator splits records in an archival export.
const RecordSeparator = "&&&"

// ParseRecords splits an archival export into records. Lines without a
// colon are skipped, and records that yield no fields are dropped.
func ParseRecords(content string) []Record {
	var records []Record

	for _, chunk := range strings.Split(content, RecordSeparator) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		var rec Record
		for _, line := range strings.Split(strings.TrimSpace(chunk), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			code, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			rec.Set(code, strings.TrimSpace(value))
		}

		if rec.Len() > 0 {
			records = append(records, rec)
		}
	}

	return records
}
