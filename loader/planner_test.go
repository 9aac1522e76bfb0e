package loader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlan_PartitionsRecordSet(t *testing.T) {
	for n := 0; n <= 25; n++ {
		rs := departmentRows(n)
		for size := 1; size <= n+2; size++ {
			batches, err := Plan(rs, size)
			require.NoError(t, err)

			var rows []Row
			for i, b := range batches {
				require.Equal(t, i, b.Index)
				require.Equal(t, RelDepartment, b.Relation)
				require.Equal(t, PassInitial, b.Pass)
				require.NotZero(t, b.Len())
				require.LessOrEqual(t, b.Len(), size)
				if i < len(batches)-1 {
					require.Equal(t, size, b.Len(), "only the last batch may be short")
				}
				rows = append(rows, b.Rows...)
			}

			if n == 0 {
				require.Empty(t, batches)
				continue
			}
			require.Equal(t, rs.Rows, rows, "n=%d size=%d", n, size)
		}
	}
}

func TestPlan_250RowsInBatchesOf100(t *testing.T) {
	batches, err := Plan(departmentRows(250), 100)
	require.NoError(t, err)

	sizes := make([]int, len(batches))
	for i, b := range batches {
		sizes[i] = b.Len()
	}
	require.Equal(t, []int{100, 100, 50}, sizes)
	require.Equal(t, 101, batches[1].Rows[0][0])
}

func TestPlan_NonPositiveBatchSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		batches, err := Plan(departmentRows(10), size)
		require.ErrorIs(t, err, ErrInvalidConfiguration)
		require.Nil(t, batches)
	}
}

func TestPlan_HugeBatchSize(t *testing.T) {
	for _, size := range []int{math.MaxInt, math.MaxInt - 1, math.MaxInt / 2} {
		rs := departmentRows(3)
		batches, err := Plan(rs, size)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		require.Equal(t, rs.Rows, batches[0].Rows)
	}
}

func TestPlan_IsDeterministic(t *testing.T) {
	rs := departmentRows(37)
	a, err := Plan(rs, 8)
	require.NoError(t, err)
	b, err := Plan(rs, 8)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPlan_BatchesCannotGrowIntoNeighbours(t *testing.T) {
	rs := departmentRows(4)
	batches, err := Plan(rs, 2)
	require.NoError(t, err)

	// Appending to a batch must not overwrite the next batch's rows
	_ = append(batches[0].Rows, Row{99, "x"})
	require.Equal(t, 3, batches[1].Rows[0][0])
}
