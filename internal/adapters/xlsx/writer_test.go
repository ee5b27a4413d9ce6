package xlsx_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/propertypulse/propertypulse/internal/adapters/xlsx"
	"github.com/propertypulse/propertypulse/internal/core/domain"
)

func TestWriter_Write(t *testing.T) {
	records := []domain.Record{
		domain.NewRecord(map[string]string{"Name": "Loft", "Latitude": "40.0", "Longitude": "-74", "Notes": "corner"}),
		domain.NewRecord(map[string]string{"Name": "Studio", "Latitude": "40.1", "Longitude": "-74.1"}),
	}
	headers := []string{"Name", "Latitude", "Longitude", "Notes"}

	var buf bytes.Buffer
	w := xlsx.NewWriter()
	if err := w.Write(context.Background(), &buf, headers, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != xlsx.SheetName {
		t.Fatalf("expected only the %s sheet, got %v", xlsx.SheetName, sheets)
	}

	rows, err := f.GetRows(xlsx.SheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], "|") != "Name|Latitude|Longitude|Notes" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "40.0" || rows[1][3] != "corner" {
		t.Errorf("expected values written verbatim, got %v", rows[1])
	}
	if rows[2][0] != "Studio" {
		t.Errorf("expected export order to be kept, got %v", rows[2])
	}
}

func TestWriter_Metadata(t *testing.T) {
	w := xlsx.NewWriter()
	if w.Extension() != ".xlsx" {
		t.Errorf("unexpected extension %q", w.Extension())
	}
	if !strings.Contains(w.ContentType(), "spreadsheetml") {
		t.Errorf("unexpected content type %q", w.ContentType())
	}
}
