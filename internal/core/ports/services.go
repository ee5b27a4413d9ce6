package ports

import (
	"context"
	"io"
	"time"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// Table is what a tabular parser hands back: rows keyed by header, plus the
// header names in first-seen order.
type Table struct {
	Rows    []map[string]string
	Headers []string
}

// TabularParser turns an uploaded file into rows.
type TabularParser interface {
	// Accepts reports whether the file looks like a supported tabular file.
	Accepts(filename, contentType string) bool
	Parse(ctx context.Context, r io.Reader) (*Table, error)
}

// SpreadsheetWriter serialises records into a spreadsheet document.
type SpreadsheetWriter interface {
	Write(ctx context.Context, w io.Writer, headers []string, records []domain.Record) error
	ContentType() string
	Extension() string
}

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error
}

// ExportStore keeps generated exports for a limited time.
type ExportStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
