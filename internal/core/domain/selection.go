package domain

// SelectionSet is the ordered set of records chosen for export. No two
// members share a coordinate identity.
type SelectionSet struct {
	records []Record
}

func (s *SelectionSet) indexOf(r Record) int {
	for i, cur := range s.records {
		if cur.SameProperty(r) {
			return i
		}
	}
	return -1
}

// Toggle removes the member sharing r's identity, or appends r when there is
// none. Stored fields are never updated in place. It reports whether r was
// added.
func (s *SelectionSet) Toggle(r Record) bool {
	if i := s.indexOf(r); i >= 0 {
		s.removeAt(i)
		return false
	}
	s.records = append(s.records, r)
	return true
}

// Add appends r unless its identity is already present.
func (s *SelectionSet) Add(r Record) bool {
	if s.indexOf(r) >= 0 {
		return false
	}
	s.records = append(s.records, r)
	return true
}

// Remove deletes the member sharing r's identity. Absent identities are a no-op.
func (s *SelectionSet) Remove(r Record) bool {
	i := s.indexOf(r)
	if i < 0 {
		return false
	}
	s.removeAt(i)
	return true
}

// Contains reports whether a member shares r's identity.
func (s *SelectionSet) Contains(r Record) bool {
	return s.indexOf(r) >= 0
}

// Clear empties the set.
func (s *SelectionSet) Clear() {
	s.records = nil
}

// ResetForNewDataset clears the set when a new dataset replaces the old one.
func (s *SelectionSet) ResetForNewDataset() {
	s.Clear()
}

// Len returns the member count.
func (s *SelectionSet) Len() int {
	return len(s.records)
}

// Records returns a copy of the members in insertion order.
func (s *SelectionSet) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *SelectionSet) removeAt(i int) {
	s.records = append(s.records[:i:i], s.records[i+1:]...)
}
