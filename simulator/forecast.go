package simulator

import (
	"math"
	"sort"
	"time"
)

// ForecastRecord is one row of the capacity forecast dataset: what was known
// at IssuedAt about the capacity of the step ending at TargetAt.
type ForecastRecord struct {
	IssuedAt              time.Time
	TargetAt              time.Time
	UFree                 float64 // Actual free capacity
	UFreePred             float64 // Predicted free capacity
	UReep                 float64 // Actual renewable-excess capacity
	UReepPredExpected     float64 // Predicted renewable-excess capacity, expected case
	UReepPredConservative float64 // Predicted renewable-excess capacity, conservative case
	UReepPredOptimistic   float64 // Predicted renewable-excess capacity, optimistic case
}

// ForecastSet groups forecast records by issuance time
type ForecastSet struct {
	issued []time.Time
	byTime map[int64][]ForecastRecord
}

// NewForecastSet indexes records by issuance time, each group ordered by target
func NewForecastSet(records []ForecastRecord) *ForecastSet {
	s := &ForecastSet{byTime: make(map[int64][]ForecastRecord)}
	for _, r := range records {
		key := r.IssuedAt.UnixNano()
		if _, ok := s.byTime[key]; !ok {
			s.issued = append(s.issued, r.IssuedAt)
		}
		s.byTime[key] = append(s.byTime[key], r)
	}
	sort.Slice(s.issued, func(i, j int) bool { return s.issued[i].Before(s.issued[j]) })
	for _, group := range s.byTime {
		sort.SliceStable(group, func(i, j int) bool { return group[i].TargetAt.Before(group[j].TargetAt) })
	}
	return s
}

// Issued returns the issuance times in ascending order
func (s *ForecastSet) Issued() []time.Time { return s.issued }

// At returns the forecast issued at t, ordered by target time
func (s *ForecastSet) At(t time.Time) ([]ForecastRecord, bool) {
	g, ok := s.byTime[t.UnixNano()]
	return g, ok
}

// Len returns the total number of records
func (s *ForecastSet) Len() int {
	n := 0
	for _, g := range s.byTime {
		n += len(g)
	}
	return n
}

// columnSelector picks the free and renewable-excess columns a policy's
// admission decisions are based on.
type columnSelector struct {
	free func(ForecastRecord) float64
	reep func(ForecastRecord) float64
}

// perfectColumns are the realized values, known in advance by the baselines
var perfectColumns = columnSelector{
	free: func(r ForecastRecord) float64 { return r.UFree },
	reep: func(r ForecastRecord) float64 { return r.UReep },
}

var forecastColumns = map[Policy]columnSelector{
	PolicyExpected: {
		free: func(r ForecastRecord) float64 { return r.UFreePred },
		reep: func(r ForecastRecord) float64 { return r.UReepPredExpected },
	},
	PolicyConservative: {
		free: func(r ForecastRecord) float64 { return r.UFreePred },
		reep: func(r ForecastRecord) float64 { return r.UReepPredConservative },
	},
	PolicyOptimistic: {
		free: func(r ForecastRecord) float64 { return r.UFreePred },
		reep: func(r ForecastRecord) float64 { return r.UReepPredOptimistic },
	},
}

// freeRenewable derives u_freep from free and reep for a policy.
func freeRenewable(p Policy, free, reep float64) float64 {
	if p.ignoresRenewableLimit() {
		return free
	}
	return math.Min(free, reep)
}

// RealizedCapacity builds the authoritative capacity table of a run. Each
// issuance at or after start contributes its first target row, keyed one
// step after issuance. Consumption starts at zero everywhere.
func RealizedCapacity(set *ForecastSet, p Policy, start time.Time, step time.Duration) *CapacityTable {
	table := NewCapacityTable()
	for _, issued := range set.Issued() {
		if issued.Before(start) {
			continue
		}
		group, _ := set.At(issued)
		first := group[0]
		table.Set(CapacityRecord{
			At:              issued.Add(step),
			FreeRenewable:   freeRenewable(p, first.UFree, first.UReep),
			Free:            first.UFree,
			RenewableExcess: first.UReep,
		})
	}
	return table
}

// ForecastCapacity builds the capacity table an admission decision sees: the
// forecast issued at issuedAt, with the policy's columns. initialUsed seeds
// the first step's consumption for decisions taken mid-step.
func ForecastCapacity(set *ForecastSet, p Policy, issuedAt time.Time, initialUsed float64) (*CapacityTable, error) {
	cols, ok := forecastColumns[p]
	if p.usesPerfectForecasts() {
		cols, ok = perfectColumns, true
	}
	if !ok {
		return nil, wrapf(ErrUnknownPolicy, "no forecast columns for policy %s", p)
	}
	group, ok := set.At(issuedAt)
	if !ok || len(group) == 0 {
		return nil, wrapf(ErrNoForecast, "%s", issuedAt.Format(TimestampLayout))
	}
	table := NewCapacityTable()
	for i, r := range group {
		free, reep := cols.free(r), cols.reep(r)
		rec := CapacityRecord{
			At:              r.TargetAt,
			FreeRenewable:   freeRenewable(p, free, reep),
			Free:            free,
			RenewableExcess: reep,
		}
		if i == 0 {
			rec.Used = initialUsed
		}
		table.Set(rec)
	}
	return table, nil
}
