// Package loader reads per-sample coordinate tables.
//
// Each input file is a CSV with a header row exposing the mandatory X and Y
// coordinate columns and an optional Label column. Header matching is
// case-insensitive and unrecognized columns are ignored. Loading is read-only
// and never mutates the input.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/punctalab/nndquant/internal/domain"
)

// Canonical column names as exported by Fiji's Analyze Particles.
const (
	colX     = "x"
	colY     = "y"
	colLabel = "label"
)

// schema holds the resolved column positions for one file. The mapping from
// accepted header spellings to canonical fields is fixed and resolved once per
// file, at load time.
type schema struct {
	x     int
	y     int
	label int // -1 when absent
}

// resolveSchema maps the header row to column positions. The first
// case-insensitive match wins; extra columns are ignored.
func resolveSchema(header []string) (schema, error) {
	s := schema{x: -1, y: -1, label: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case colX:
			if s.x == -1 {
				s.x = i
			}
		case colY:
			if s.y == -1 {
				s.y = i
			}
		case colLabel:
			if s.label == -1 {
				s.label = i
			}
		}
	}
	if s.x == -1 || s.y == -1 {
		return s, domain.ErrSchemaInvalid
	}
	return s, nil
}

// LoadSample parses the coordinate table at path and extracts a Sample.
//
// The sample identifier is the file name stem. The label, when a Label column
// is present, is taken from the first data row. A table with a valid header
// but zero data rows yields a sample with an empty point set, not an error.
//
// Failures are reported as domain.ErrUnreadable, domain.ErrSchemaInvalid or
// domain.ErrMalformedValue, wrapped with file context and matchable via
// errors.Is.
func LoadSample(path string) (domain.Sample, error) {
	base := filepath.Base(path)
	sample := domain.Sample{ID: strings.TrimSuffix(base, filepath.Ext(base))}

	f, err := os.Open(path)
	if err != nil {
		return sample, fmt.Errorf("%w: %s: %v", domain.ErrUnreadable, base, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// No header at all: the required columns cannot be present.
			return sample, fmt.Errorf("%w: %s: empty file", domain.ErrSchemaInvalid, base)
		}
		return sample, fmt.Errorf("%w: %s: %v", domain.ErrUnreadable, base, err)
	}
	sch, err := resolveSchema(header)
	if err != nil {
		return sample, fmt.Errorf("%w: %s: header %q", err, base, strings.Join(header, ","))
	}

	var points domain.PointSet
	row := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sample, fmt.Errorf("%w: %s: %v", domain.ErrUnreadable, base, err)
		}
		row++

		if sch.x >= len(rec) || sch.y >= len(rec) {
			return sample, fmt.Errorf("%w: %s: row %d has %d fields", domain.ErrMalformedValue, base, row, len(rec))
		}
		x, err := parseCoord(rec[sch.x])
		if err != nil {
			return sample, fmt.Errorf("%w: %s: row %d column X: %q", domain.ErrMalformedValue, base, row, rec[sch.x])
		}
		y, err := parseCoord(rec[sch.y])
		if err != nil {
			return sample, fmt.Errorf("%w: %s: row %d column Y: %q", domain.ErrMalformedValue, base, row, rec[sch.y])
		}
		points = append(points, domain.Point{X: x, Y: y})

		if row == 1 && sch.label != -1 && sch.label < len(rec) {
			sample.Label = strings.TrimSpace(rec[sch.label])
		}
	}

	sample.Points = points
	return sample, nil
}

func parseCoord(cell string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}
