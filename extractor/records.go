package extractor

import "github.com/use-agent/plexport/models"

// RecordSet accumulates unique records for one run. It only grows.
type RecordSet struct {
	byKey map[string]models.MovieRecord
}

// NewRecordSet returns an empty set.
func NewRecordSet() *RecordSet {
	return &RecordSet{byKey: make(map[string]models.MovieRecord)}
}

// Add inserts rec and reports whether it was new.
func (s *RecordSet) Add(rec models.MovieRecord) bool {
	key := rec.Key()
	if _, ok := s.byKey[key]; ok {
		return false
	}
	s.byKey[key] = rec
	return true
}

// Len returns the number of unique records.
func (s *RecordSet) Len() int { return len(s.byKey) }

// Records returns the records in unspecified order.
func (s *RecordSet) Records() []models.MovieRecord {
	out := make([]models.MovieRecord, 0, len(s.byKey))
	for _, rec := range s.byKey {
		out = append(out, rec)
	}
	return out
}
