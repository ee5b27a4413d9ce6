package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type: please upload a CSV file")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNoDataset           = errors.New("no dataset loaded")
	ErrRecordIndex         = errors.New("record index out of range")
	ErrInvalidUnit         = errors.New("unit must be km or miles")
	ErrEmptySelection      = errors.New("no properties selected")
	ErrExportNotFound      = errors.New("export not found")
	ErrInvalidRadius       = errors.New("radius must be a non-negative number")
	ErrExportsDisabled     = errors.New("export storage is not configured")
)

// ParseError is reported when the tabular parser rejects the upload.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Error parsing CSV: line %d: %s", e.Line, e.Msg)
	}
	return "Error parsing CSV: " + e.Msg
}

// MissingColumnsError lists required columns absent from the header row.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Missing, ", ")
}

// UserMessage is the text shown in an error notification for err.
func UserMessage(err error) string {
	var pe *ParseError
	var mc *MissingColumnsError
	switch {
	case errors.Is(err, ErrUnsupportedFileType):
		return "Please upload a CSV file"
	case errors.As(err, &pe):
		return pe.Error()
	case errors.As(err, &mc):
		return mc.Error()
	case errors.Is(err, ErrEmptySelection):
		return "Select at least one property to export"
	default:
		return err.Error()
	}
}
