package domain

import (
	"math"
	"time"
)

// Point is a single 2D centroid coordinate.
type Point struct {
	X float64
	Y float64
}

// PointSet is an ordered sequence of 2D coordinates belonging to one sample.
// It is treated as immutable once loaded; the analysis that consumes it never
// mutates or retains it.
type PointSet []Point

// Count returns the number of points in the set.
func (ps PointSet) Count() int { return len(ps) }

// Sample is one loaded input file: an identifier derived from the file name
// stem, an optional free-text label taken from the first data row, and the
// point set extracted from the coordinate columns.
type Sample struct {
	ID     string
	Label  string
	Points PointSet
}

// Status describes the per-sample outcome of the NND computation.
type Status string

const (
	// StatusOK means both metrics are finite and well-defined.
	StatusOK Status = "ok"

	// StatusInsufficientPoints means the sample had fewer than 2 points;
	// both metrics are undefined.
	StatusInsufficientPoints Status = "insufficient_points"

	// StatusDegenerateDuplicatePoints means at least one point had a
	// coincident duplicate (nearest-neighbor distance of zero); the mean NND
	// is still defined but the mean inverse NND is not.
	StatusDegenerateDuplicatePoints Status = "degenerate_duplicate_points"
)

// SummaryRecord is one row of the output table. MeanNND and MeanInverseNND
// are NaN whenever they are undefined; Status records the reason.
type SummaryRecord struct {
	SampleID       string
	Label          string
	PunctaCount    int
	MeanNND        float64
	MeanInverseNND float64
	Status         Status
}

// Defined reports whether the mean NND metric carries a value.
func (r SummaryRecord) Defined() bool { return !math.IsNaN(r.MeanNND) }

// SkippedSample records a sample file that failed to load, with the reason.
type SkippedSample struct {
	Path string
	Err  error
}

// BatchResult is the consolidated outcome of one batch run. Records appear in
// the deterministic discovery order of their source files. The value is
// immutable after the run completes and is owned by the caller.
type BatchResult struct {
	RunID       string
	GeneratedAt time.Time
	Records     []SummaryRecord
	Skipped     []SkippedSample
	OutputPath  string
}
