package idx

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	ids := make([]ID, 0, 100)
	for range 100 {
		ids = append(ids, New())
	}

	require.True(t, sort.SliceIsSorted(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	}), "ids generated in sequence must sort lexicographically")

	seen := map[ID]bool{}
	for _, id := range ids {
		require.Len(t, id.String(), 26)
		require.False(t, seen[id])
		seen[id] = true
	}
}
