package domain

import "time"

// SessionState is the coarse position of a session in its lifecycle.
type SessionState string

const (
	StateNoData          SessionState = "no_data"
	StateDataLoaded      SessionState = "data_loaded"
	StateReferenceChosen SessionState = "reference_chosen"
)

// Default view settings for a new session.
const (
	DefaultRadius = 1.0
	DefaultUnit   = UnitKm
)

// Session holds the whole mutable state of one browsing session: dataset,
// reference, radius, unit, selection and the current notification.
type Session struct {
	ID        string
	Dataset   *Dataset
	Reference *int // index into Dataset.Records
	Radius    float64
	Unit      Unit
	Selection SelectionSet
	Notice    *Notification
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns an empty session in StateNoData.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Radius:    DefaultRadius,
		Unit:      DefaultUnit,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// State reports where the session is in NoData → DataLoaded → ReferenceChosen.
func (s *Session) State() SessionState {
	switch {
	case s.Dataset == nil:
		return StateNoData
	case s.Reference == nil:
		return StateDataLoaded
	default:
		return StateReferenceChosen
	}
}

// ReplaceDataset swaps in ds and resets the reference and the selection.
// Radius and unit are kept.
func (s *Session) ReplaceDataset(ds *Dataset) {
	s.Dataset = ds
	s.Reference = nil
	s.Selection.ResetForNewDataset()
}

// ReferenceRecord returns the chosen reference, or nil when unset.
func (s *Session) ReferenceRecord() *Record {
	if s.Reference == nil || s.Dataset == nil {
		return nil
	}
	i := *s.Reference
	if i < 0 || i >= len(s.Dataset.Records) {
		return nil
	}
	r := s.Dataset.Records[i]
	return &r
}

// SessionSummary is the JSON view of a session.
type SessionSummary struct {
	ID             string        `json:"id"`
	State          SessionState  `json:"state"`
	Source         string        `json:"source,omitempty"`
	Headers        []string      `json:"headers,omitempty"`
	Records        int           `json:"records"`
	ValidRecords   int           `json:"valid_records"`
	ReferenceIndex *int          `json:"reference_index,omitempty"`
	Reference      *Record       `json:"reference,omitempty"`
	Radius         float64       `json:"radius"`
	Unit           Unit          `json:"unit"`
	Selected       int           `json:"selected"`
	Notification   *Notification `json:"notification,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Summary builds the JSON view as of now.
func (s *Session) Summary(now time.Time) SessionSummary {
	sum := SessionSummary{
		ID:           s.ID,
		State:        s.State(),
		Records:      s.Dataset.Len(),
		ValidRecords: s.Dataset.ValidCount(),
		Reference:    s.ReferenceRecord(),
		Radius:       s.Radius,
		Unit:         s.Unit,
		Selected:     s.Selection.Len(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Dataset != nil {
		sum.Source = s.Dataset.Source
		sum.Headers = s.Dataset.Headers
	}
	if s.Reference != nil {
		i := *s.Reference
		sum.ReferenceIndex = &i
	}
	if s.Notice.Active(now) {
		n := *s.Notice
		sum.Notification = &n
	}
	return sum
}
