package nndquant

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/punctalab/nndquant/internal/domain"
)

// summaryHeader is the output table header. Undefined metric cells carry the
// literal "NaN", which spreadsheet and stats tools parse as missing.
var summaryHeader = []string{"sample_id", "label", "puncta_count", "mean_nnd", "mean_inverse_nnd", "status"}

// writeSummary writes the summary table atomically: a temp file in the
// destination directory is populated, synced, and renamed into place, so a
// failed run never leaves a partial table behind. All failures are wrapped as
// domain.ErrOutputWriteFailed.
func writeSummary(path string, records []domain.SummaryRecord) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".nnd-summary-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOutputWriteFailed, err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", domain.ErrOutputWriteFailed, err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(summaryHeader); err != nil {
		return fail(err)
	}
	for _, r := range records {
		row := []string{
			r.SampleID,
			r.Label,
			strconv.Itoa(r.PunctaCount),
			formatMetric(r.MeanNND),
			formatMetric(r.MeanInverseNND),
			string(r.Status),
		}
		if err := w.Write(row); err != nil {
			return fail(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fail(err)
	}

	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", domain.ErrOutputWriteFailed, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", domain.ErrOutputWriteFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", domain.ErrOutputWriteFailed, err)
	}
	return nil
}

// formatMetric renders a metric with 5 decimal places, or "NaN" when the
// value is undefined.
func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 5, 64)
}
