package simulator

import (
	"time"

	"github.com/google/btree"
)

// CapacityRecord is the capacity of one time step, keyed by the step's end.
// All figures are in mch per step.
type CapacityRecord struct {
	At              time.Time `json:"datetime"`
	FreeRenewable   float64   `json:"u_freep"` // Free capacity that renewable excess energy can power
	Free            float64   `json:"u_free"`  // Free capacity regardless of power source
	RenewableExcess float64   `json:"u_reep"`  // Capacity renewable excess energy could power
	Used            float64   `json:"u_used"`  // Capacity consumed so far; only grows
}

// RemainingRenewable is the renewable-powered capacity still unused. It may
// be negative once grid power has been drawn.
func (r CapacityRecord) RemainingRenewable() float64 { return r.FreeRenewable - r.Used }

// RemainingFree is the capacity still unused. It must never be negative.
func (r CapacityRecord) RemainingFree() float64 { return r.Free - r.Used }

// GridUsage is the consumed capacity renewable excess energy could not cover.
func (r CapacityRecord) GridUsage() float64 {
	if d := r.Used - r.RenewableExcess; d > 0 {
		return d
	}
	return 0
}

const capacityTableDegree = 32

// CapacityTable is an ordered map from step timestamp to CapacityRecord.
// Records are stored by value.
type CapacityTable struct {
	tree *btree.BTreeG[CapacityRecord]
}

func capacityLess(a, b CapacityRecord) bool { return a.At.Before(b.At) }

// NewCapacityTable creates a table from records. Later records replace
// earlier ones with the same timestamp.
func NewCapacityTable(records ...CapacityRecord) *CapacityTable {
	t := &CapacityTable{tree: btree.NewG[CapacityRecord](capacityTableDegree, capacityLess)}
	for _, r := range records {
		t.tree.ReplaceOrInsert(r)
	}
	return t
}

// Len returns the number of steps in the table
func (t *CapacityTable) Len() int { return t.tree.Len() }

// Get returns the record for the step keyed at at
func (t *CapacityTable) Get(at time.Time) (CapacityRecord, bool) {
	return t.tree.Get(CapacityRecord{At: at})
}

// Set inserts or replaces a record
func (t *CapacityTable) Set(r CapacityRecord) {
	t.tree.ReplaceOrInsert(r)
}

// Range returns the records with from <= At <= to in ascending order
func (t *CapacityTable) Range(from, to time.Time) []CapacityRecord {
	var out []CapacityRecord
	t.tree.AscendGreaterOrEqual(CapacityRecord{At: from}, func(r CapacityRecord) bool {
		if r.At.After(to) {
			return false
		}
		out = append(out, r)
		return true
	})
	return out
}

// Records returns every record in ascending order
func (t *CapacityTable) Records() []CapacityRecord {
	out := make([]CapacityRecord, 0, t.tree.Len())
	t.tree.Ascend(func(r CapacityRecord) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Clone returns a deep copy that shares no storage with t
func (t *CapacityTable) Clone() *CapacityTable {
	return NewCapacityTable(t.Records()...)
}
