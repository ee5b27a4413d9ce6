package domain

import (
	"fmt"
	"time"
)

// Dataset is the atomic result of one upload. Records keep rows whose
// coordinates are unusable; geospatial code skips them.
type Dataset struct {
	Records  []Record  `json:"records"`
	Headers  []string  `json:"headers"`
	Columns  Columns   `json:"columns"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewDataset validates headers and binds every row. It fails with a
// *MissingColumnsError when a required column is absent.
func NewDataset(rows []map[string]string, headers []string, source string, loadedAt time.Time) (*Dataset, error) {
	v := ValidateHeaders(headers)
	if !v.OK {
		return nil, &MissingColumnsError{Missing: v.Missing}
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = v.Columns.Bind(row)
	}

	hs := make([]string, len(headers))
	copy(hs, headers)

	return &Dataset{
		Records:  records,
		Headers:  hs,
		Columns:  v.Columns,
		Source:   source,
		LoadedAt: loadedAt,
	}, nil
}

// Len returns the number of stored rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Record returns the row at index i.
func (d *Dataset) Record(i int) (Record, error) {
	if d == nil {
		return Record{}, ErrNoDataset
	}
	if i < 0 || i >= len(d.Records) {
		return Record{}, fmt.Errorf("%w: %d (dataset has %d rows)", ErrRecordIndex, i, len(d.Records))
	}
	return d.Records[i], nil
}

// ValidCount returns how many rows have usable coordinates.
func (d *Dataset) ValidCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, r := range d.Records {
		if r.HasValidCoordinates() {
			n++
		}
	}
	return n
}
