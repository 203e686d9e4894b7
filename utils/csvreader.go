package utils

import (
	"encoding/csv"
	"io"
)

// ParseCSV reads every record. Lines starting with # are skipped and leading
// spaces in a field are trimmed.
func ParseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}
