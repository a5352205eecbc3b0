package simulator

import (
	"time"
)

// capacityEpsilon absorbs floating-point residue when checking the capacity
// ceiling; it is far below any meaningful amount of work.
const capacityEpsilon = 1e-9

// ResourceManager tracks the node's capacity per time step and how much of
// it has been consumed. It exclusively owns its CapacityTable.
//
// Every query resolves a timestamp to the step it belongs to by rounding up
// to the next boundary, since capacity is keyed by the step's end.
type ResourceManager struct {
	table *CapacityTable
	step  time.Duration
}

// NewResourceManager takes ownership of table
func NewResourceManager(table *CapacityTable, step time.Duration) *ResourceManager {
	return &ResourceManager{table: table, step: step}
}

// Step returns the time step size
func (rm *ResourceManager) Step() time.Duration { return rm.step }

// Table returns the underlying capacity table
func (rm *ResourceManager) Table() *CapacityTable { return rm.table }

// Clone returns a manager over a deep copy of the table
func (rm *ResourceManager) Clone() *ResourceManager {
	return NewResourceManager(rm.table.Clone(), rm.step)
}

func (rm *ResourceManager) record(now time.Time) (CapacityRecord, error) {
	at := RoundUp(now, rm.step)
	r, ok := rm.table.Get(at)
	if !ok {
		return CapacityRecord{}, wrapf(ErrNoCapacityData, "step %s", at.Format(TimestampLayout))
	}
	return r, nil
}

// AvailableNow returns the renewable-powered and total capacity still unused
// in the step containing now.
func (rm *ResourceManager) AvailableNow(now time.Time) (freep, free float64, err error) {
	r, err := rm.record(now)
	if err != nil {
		return 0, 0, err
	}
	return r.RemainingRenewable(), r.RemainingFree(), nil
}

// AvailableOver sums the unused capacity of every step overlapping
// [start, end). The last step in range only counts with the fraction of the
// step containing end that lies before end, also when the table stops short
// of end. A range within a single step yields zero.
func (rm *ResourceManager) AvailableOver(start, end time.Time) (freep, free float64) {
	records := rm.table.Range(RoundUp(start, rm.step), RoundUp(end, rm.step))
	if len(records) <= 1 {
		return 0, 0
	}
	lastFraction := stepFraction(end, rm.step)
	for i, r := range records {
		p, f := r.RemainingRenewable(), r.RemainingFree()
		if i == len(records)-1 {
			p *= lastFraction
			f *= lastFraction
		}
		freep += p
		free += f
	}
	return freep, free
}

// UsedAt returns the capacity already consumed in the step containing now
func (rm *ResourceManager) UsedAt(now time.Time) (float64, error) {
	r, err := rm.record(now)
	if err != nil {
		return 0, err
	}
	return r.Used, nil
}

// Account records amount mch consumed in the step containing now. Consuming
// more than the step's free capacity means the scheduler over-allocated and
// is reported as ErrCapacityExceeded; the table is left unchanged.
func (rm *ResourceManager) Account(now time.Time, amount float64) error {
	r, err := rm.record(now)
	if err != nil {
		return err
	}
	r.Used += amount
	if r.RemainingFree() < -capacityEpsilon {
		return wrapf(ErrCapacityExceeded, "cannot use additional %.4f mch at %s (free %.4f, used %.4f)",
			amount, r.At.Format(TimestampLayout), r.Free, r.Used-amount)
	}
	rm.table.Set(r)
	return nil
}
