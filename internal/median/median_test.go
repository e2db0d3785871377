package median

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedianEmptyIsZero(t *testing.T) {
	tr := NewTracker(nil, nil)
	assert.Equal(t, 0.0, tr.Median())
}

func TestMedianSequence(t *testing.T) {
	tr := NewTracker(nil, nil)

	inserts := []float64{5, 2, 8, 1, 9}
	want := []float64{5, 3.5, 5, 3.5, 5}

	for i, v := range inserts {
		tr.Insert(v)
		assert.Equal(t, want[i], tr.Median(), "median after inserting %v", inserts[:i+1])
	}
}

func TestSizeInvariantAndPartition(t *testing.T) {
	tr := NewTracker(nil, nil)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		tr.Insert(rng.Float64() * 1000)

		lower, upper := tr.Halves()
		diff := len(lower) - len(upper)
		require.True(t, diff == 0 || diff == 1, "size invariant violated: |lower|=%d |upper|=%d", len(lower), len(upper))

		if len(lower) > 0 && len(upper) > 0 {
			maxLower := lower[0]
			for _, v := range lower {
				if v > maxLower {
					maxLower = v
				}
			}
			minUpper := upper[0]
			for _, v := range upper {
				if v < minUpper {
					minUpper = v
				}
			}
			require.LessOrEqual(t, maxLower, minUpper)
		}
	}
}

func TestMedianMatchesSorted(t *testing.T) {
	tr := NewTracker(nil, nil)
	rng := rand.New(rand.NewSource(7))

	var all []float64
	for i := 0; i < 201; i++ {
		v := float64(rng.Intn(10000))
		tr.Insert(v)
		all = append(all, v)
	}

	sorted := append([]float64(nil), all...)
	sort.Float64s(sorted)
	assert.Equal(t, sorted[len(sorted)/2], tr.Median())
}

func TestMarshalRoundTrip(t *testing.T) {
	tr := NewTracker(nil, nil)
	for _, v := range []float64{10, 20, 30, 40, 50} {
		tr.Insert(v)
	}

	lower, upper, err := tr.Marshal()
	require.NoError(t, err)

	restored, err := Unmarshal(lower, upper)
	require.NoError(t, err)
	assert.Equal(t, tr.Median(), restored.Median())
	assert.Equal(t, tr.Size(), restored.Size())

	// Restored trackers keep accepting inserts.
	restored.Insert(25)
	assert.Equal(t, 27.5, restored.Median())
}

func TestUnmarshalEmptyState(t *testing.T) {
	tr, err := Unmarshal("", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, tr.Median())
	assert.Equal(t, 0, tr.Size())
}
