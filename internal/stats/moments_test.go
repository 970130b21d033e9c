package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-3

func naiveMoments(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ssd float64
	for _, v := range values {
		ssd += (v - mean) * (v - mean)
	}
	return mean, ssd
}

func TestMergeNewPointsFromZero(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{name: "single", values: []float64{4}},
		{name: "constant", values: []float64{3, 3, 3, 3}},
		{name: "mixed", values: []float64{0, 1, 2, 3, 4, 5}},
		{name: "skewed", values: []float64{5, 5, 5, 5, 5, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, ssd, count := MergeNewPoints(0, 0, 0, tt.values)
			wantMean, wantSSD := naiveMoments(tt.values)

			assert.Equal(t, int64(len(tt.values)), count)
			assert.InDelta(t, wantMean, mean, tolerance)
			assert.InDelta(t, wantSSD, ssd, tolerance)
		})
	}
}

func TestMergeNewPointsIncremental(t *testing.T) {
	all := []float64{2, 4, 4, 4, 5, 5, 7, 0, 1, 3}

	mean, ssd, count := MergeNewPoints(0, 0, 0, all[:4])
	mean, ssd, count = MergeNewPoints(mean, ssd, count, all[4:7])
	for _, v := range all[7:] {
		mean, ssd, count = MergeNewPoints(mean, ssd, count, []float64{v})
	}

	wantMean, wantSSD := naiveMoments(all)
	assert.Equal(t, int64(len(all)), count)
	assert.InDelta(t, wantMean, mean, tolerance)
	assert.InDelta(t, wantSSD, ssd, tolerance)
}

func TestMergeNewPointsOrderIndependent(t *testing.T) {
	m1, s1, c1 := MergeNewPoints(3.0, 200.0, 100, []float64{1, 4, 5})
	m2, s2, c2 := MergeNewPoints(3.0, 200.0, 100, []float64{5, 4, 1})

	assert.Equal(t, c1, c2)
	assert.InDelta(t, m1, m2, 1e-9)
	assert.InDelta(t, s1, s2, 1e-9)
}

func TestMergeNewPointsEmpty(t *testing.T) {
	mean, ssd, count := MergeNewPoints(2.5, 10, 4, nil)
	assert.Equal(t, 2.5, mean)
	assert.Equal(t, 10.0, ssd)
	assert.Equal(t, int64(4), count)
}

func TestUpdateOnReplace(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	mean, ssd, count := MergeNewPoints(0, 0, 0, values)

	newMean, newSSD := UpdateOnReplace(mean, ssd, count, 0, 5)
	wantMean, wantSSD := naiveMoments([]float64{1, 2, 3, 4, 0})

	assert.InDelta(t, wantMean, newMean, tolerance)
	assert.InDelta(t, wantSSD, newSSD, tolerance)
}

func TestUpdateOnReplaceRoundTrip(t *testing.T) {
	mean, ssd := 3.0, 200.0
	var count int64 = 100

	m, s := UpdateOnReplace(mean, ssd, count, 5, 1)
	m, s = UpdateOnReplace(m, s, count, 1, 5)

	assert.InDelta(t, mean, m, tolerance)
	assert.InDelta(t, ssd, s, tolerance)
}

func TestUpdateOnReplaceSameValue(t *testing.T) {
	m, s := UpdateOnReplace(2.0, 8.0, 4, 3, 3)
	assert.Equal(t, 2.0, m)
	assert.Equal(t, 8.0, s)
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, Variance(10, 0))
	assert.Equal(t, 2.0, Variance(200, 100))
}

func TestZScore(t *testing.T) {
	assert.InDelta(t, -2.25, ZScore(4.5, 4.0, 0), 1e-9)
	assert.InDelta(t, 1.0, ZScore(0, 1, 1), 1e-9)
}

func TestNormalPDF(t *testing.T) {
	require.InDelta(t, 1/math.Sqrt(2*math.Pi), NormalPDF(0, 1, 0), 1e-9)
	assert.InDelta(t, math.Exp(-9.0/4)/math.Sqrt(4*math.Pi), NormalPDF(3, 2, 0), 1e-9)
	assert.Equal(t, 0.0, NormalPDF(3, 0, 3))
}
