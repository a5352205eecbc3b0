package simulator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapacityTable(t *testing.T) {
	table := NewCapacityTable(
		CapacityRecord{At: at(3), Free: 30},
		CapacityRecord{At: at(1), Free: 10},
		CapacityRecord{At: at(2), Free: 20},
		CapacityRecord{At: at(1), Free: 11},
	)
	require.Equal(t, 3, table.Len())

	r, ok := table.Get(at(1))
	require.True(t, ok)
	require.Equal(t, 11.0, r.Free, "later records replace earlier ones")
	_, ok = table.Get(at(4))
	require.False(t, ok)

	var free []float64
	for _, r := range table.Range(at(2), at(3)) {
		free = append(free, r.Free)
	}
	require.Equal(t, []float64{20, 30}, free, "range is inclusive at both ends")
	require.Empty(t, table.Range(at(4), at(9)))

	clone := table.Clone()
	clone.Set(CapacityRecord{At: at(2), Free: 20, Used: 5})
	r, _ = table.Get(at(2))
	require.Equal(t, 0.0, r.Used, "clone shares no storage")
}

func TestCapacityRecordDerivedValues(t *testing.T) {
	r := CapacityRecord{FreeRenewable: 40, Free: 100, RenewableExcess: 40, Used: 70}
	require.Equal(t, -30.0, r.RemainingRenewable(), "renewable budget may go negative")
	require.Equal(t, 30.0, r.RemainingFree())
	require.Equal(t, 30.0, r.GridUsage())

	r.Used = 10
	require.Equal(t, 0.0, r.GridUsage())
}
