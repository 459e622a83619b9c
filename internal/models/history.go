package models

import "encoding/json"

// HistoryCapacity is the number of submissions kept.
const HistoryCapacity = 2

// RecordHistory holds at most HistoryCapacity records, newest first.
// Order is insertion order; CreatedAt is never consulted.
type RecordHistory struct {
	records []StudentRecord
}

// NewRecordHistory builds a history from records already ordered newest first.
// Anything past capacity is dropped.
func NewRecordHistory(records ...StudentRecord) RecordHistory {
	n := len(records)
	if n > HistoryCapacity {
		n = HistoryCapacity
	}
	out := make([]StudentRecord, n)
	copy(out, records[:n])
	return RecordHistory{records: out}
}

// Push returns a new history with r in front and the oldest record evicted past capacity.
// The receiver is not modified.
func (h RecordHistory) Push(r StudentRecord) RecordHistory {
	keep := len(h.records)
	if keep > HistoryCapacity-1 {
		keep = HistoryCapacity - 1
	}
	out := make([]StudentRecord, 0, keep+1)
	out = append(out, r)
	out = append(out, h.records[:keep]...)
	return RecordHistory{records: out}
}

// Len returns the number of retained records.
func (h RecordHistory) Len() int { return len(h.records) }

// Records returns a copy of the retained records, newest first.
func (h RecordHistory) Records() []StudentRecord {
	out := make([]StudentRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Latest returns the newest record.
func (h RecordHistory) Latest() (StudentRecord, bool) {
	return h.At(0)
}

// Previous returns the record submitted before the latest one.
func (h RecordHistory) Previous() (StudentRecord, bool) {
	return h.At(1)
}

// At returns the record in slot i (0 = newest).
func (h RecordHistory) At(i int) (StudentRecord, bool) {
	if i < 0 || i >= len(h.records) {
		return StudentRecord{}, false
	}
	return h.records[i], true
}

// MarshalJSON encodes the history as a JSON array, newest first.
func (h RecordHistory) MarshalJSON() ([]byte, error) {
	if h.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.records)
}

// UnmarshalJSON decodes a JSON array, keeping the first HistoryCapacity entries.
func (h *RecordHistory) UnmarshalJSON(data []byte) error {
	var records []StudentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	*h = NewRecordHistory(records...)
	return nil
}
