package metadata

import (
	"fmt"
	"regexp"
	"strings"
)

// RecordSeparator splits a response into records. A blank line inside a
// record body also splits it; the fragment then fails ParseRecord.
const RecordSeparator = "\n\n"

const (
	AttrDatabase = "DATABASE"
	AttrTable    = "TABLE"
)

var (
	databaseAttr = attributePattern(AttrDatabase)
	tableAttr    = attributePattern(AttrTable)
)

func attributePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\s)` + name + `\s*=\s*"([^"]*)"`)
}

// Record is one table's metadata block. Text is the trimmed block exactly as
// the model produced it.
type Record struct {
	Index    int
	Database string
	Table    string
	Text     string
}

// FileName is the output file name for the record: {database}_{table}.txt.
func (r Record) FileName() string {
	return r.Database + "_" + r.Table + ".txt"
}

// ParseError reports a record whose DATABASE or TABLE attribute could not be
// used to name its output file.
type ParseError struct {
	Index     int
	Attribute string
	Reason    string
	Record    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record %d: %s attribute %s: %q", e.Index, e.Attribute, e.Reason, preview(e.Record))
}

func preview(s string) string {
	const limit = 80
	if first, _, ok := strings.Cut(s, "\n"); ok {
		s = first
	}
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// SplitRecords splits a response into trimmed, non-empty record texts.
func SplitRecords(response string) []string {
	parts := strings.Split(response, RecordSeparator)
	records := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		records = append(records, p)
	}
	return records
}

// ParseRecord extracts the DATABASE and TABLE attribute values from text.
// The first occurrence of each attribute wins.
func ParseRecord(index int, text string) (Record, error) {
	database, err := attributeValue(databaseAttr, AttrDatabase, index, text)
	if err != nil {
		return Record{}, err
	}
	table, err := attributeValue(tableAttr, AttrTable, index, text)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Index:    index,
		Database: database,
		Table:    table,
		Text:     text,
	}, nil
}

func attributeValue(re *regexp.Regexp, name string, index int, text string) (string, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", &ParseError{Index: index, Attribute: name, Reason: "is missing", Record: text}
	}
	v := m[1]
	switch {
	case v == "":
		return "", &ParseError{Index: index, Attribute: name, Reason: "is empty", Record: text}
	case v == "." || v == "..", strings.ContainsAny(v, `/\`), strings.ContainsRune(v, 0):
		return "", &ParseError{Index: index, Attribute: name, Reason: fmt.Sprintf("value %q is not a valid file name part", v), Record: text}
	}
	return v, nil
}
