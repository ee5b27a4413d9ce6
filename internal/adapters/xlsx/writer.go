package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// SheetName is the worksheet every export is written to.
const SheetName = "Properties"

const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Writer implements ports.SpreadsheetWriter with excelize.
type Writer struct{}

// NewWriter creates a new xlsx writer.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) ContentType() string { return contentType }
func (w *Writer) Extension() string   { return ".xlsx" }

// Write streams headers and one row per record into a single sheet. Values
// are written verbatim as strings.
func (w *Writer) Write(ctx context.Context, out io.Writer, headers []string, records []domain.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	// Use Stream Writer for performance
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := sw.SetRow("A1", row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := make([]interface{}, len(headers))
		for j, h := range headers {
			row[j] = r.Fields[h]
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
