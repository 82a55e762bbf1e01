package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// FromCSV reads a delimited file into a Table. The separator is sniffed from
// the header line: a tab wins over a comma, matching common sample sheets
// exported as either .csv or .tsv.
func FromCSV(name string, r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("table %q: read: %w", name, err)
	}
	line, _, _ := strings.Cut(string(header), "\n")

	cr := csv.NewReader(br)
	if strings.Contains(line, "\t") {
		cr.Comma = '\t'
	}
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("table %q: parse: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %q: empty file", name)
	}
	return New(name, records[0], records[1:])
}

// FromFile loads a delimited file from disk into a Table.
func FromFile(name, path string) (*Table, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	defer fd.Close()
	return FromCSV(name, fd)
}
