package nndquant

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/punctalab/nndquant/internal/domain"
	"github.com/punctalab/nndquant/internal/spatial"
)

// Analyze computes the NND summary metrics for one sample's point set.
//
// For fewer than 2 points both metrics are NaN and the status is
// insufficient_points; the sentinel is assigned, never computed. For 2 or
// more points a KD-tree is built over the set and each point is queried for
// its nearest other point. The mean NND is always defined in that case. When
// any nearest-neighbor distance is zero (coincident duplicate points) the
// inverse metric is undefined for the whole sample and the status is
// degenerate_duplicate_points; a positive infinity is never folded into the
// aggregate.
func Analyze(pts domain.PointSet) (meanNND, meanInverseNND float64, status domain.Status) {
	if pts.Count() < 2 {
		return math.NaN(), math.NaN(), domain.StatusInsufficientPoints
	}

	dists := spatial.NearestDistances(pts)
	meanNND = stat.Mean(dists, nil)

	for _, d := range dists {
		if d == 0 {
			return meanNND, math.NaN(), domain.StatusDegenerateDuplicatePoints
		}
	}

	inv := make([]float64, len(dists))
	for i, d := range dists {
		inv[i] = 1 / d
	}
	return meanNND, stat.Mean(inv, nil), domain.StatusOK
}

// analyzeSample wraps Analyze into a full output row for one loaded sample.
func analyzeSample(s domain.Sample) domain.SummaryRecord {
	meanNND, meanInv, status := Analyze(s.Points)
	return domain.SummaryRecord{
		SampleID:       s.ID,
		Label:          s.Label,
		PunctaCount:    s.Points.Count(),
		MeanNND:        meanNND,
		MeanInverseNND: meanInv,
		Status:         status,
	}
}
