package csvfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/core/ports"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser implements ports.TabularParser for comma-separated files with a
// header row.
type Parser struct{}

// NewParser creates a new CSV parser.
func NewParser() *Parser {
	return &Parser{}
}

// Accepts reports whether the upload is a CSV by extension or media type.
func (p *Parser) Accepts(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/csv"
}

// Parse reads the header row and every data row. Empty lines are skipped,
// short rows are padded with empty strings and long rows are rejected.
// Errors are *domain.ParseError carrying the offending line.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*ports.Table, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.ParseError{Msg: "file is empty"}
	}
	if err != nil {
		return nil, toParseError(err)
	}

	headers := make([]string, 0, len(header))
	index := make([]int, 0, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		// Keys stay exactly as written; blank and repeated names are dropped.
		if strings.TrimSpace(h) == "" || seen[h] {
			continue
		}
		seen[h] = true
		headers = append(headers, h)
		index = append(index, i)
	}
	if len(headers) == 0 {
		return nil, &domain.ParseError{Line: 1, Msg: "header row has no column names"}
	}

	table := &ports.Table{Headers: headers}
	for n := 0; ; n++ {
		if n%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &domain.ParseError{
				Line: line,
				Msg:  fmt.Sprintf("expected %d fields, found %d", len(header), len(rec)),
			}
		}

		row := make(map[string]string, len(headers))
		for j, h := range headers {
			if col := index[j]; col < len(rec) {
				row[h] = rec[col]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func toParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &domain.ParseError{Line: pe.Line, Msg: pe.Err.Error()}
	}
	return &domain.ParseError{Msg: err.Error()}
}
