package nndquant

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/punctalab/nndquant/internal/domain"
)

func writeSample(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// fixedClock pins the run timestamp so output names are reproducible.
func fixedClock() time.Time {
	return time.Date(2025, 4, 17, 15, 4, 5, 0, time.UTC)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return rows
}

func TestRun_ThreeSampleScenario(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "cellA.csv", "X,Y\n0,0\n0,3\n")
	writeSample(t, dir, "cellB.csv", "X,Y\n0,0\n0,0\n")
	writeSample(t, dir, "cellC.csv", "X,Y\n1,1\n")

	cfg := DefaultConfig()
	cfg.InputDir = dir

	result, err := Run(context.Background(), cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result.Records))
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("expected no skipped samples, got %d", len(result.Skipped))
	}

	a, b, c := result.Records[0], result.Records[1], result.Records[2]

	if a.SampleID != "cellA" || b.SampleID != "cellB" || c.SampleID != "cellC" {
		t.Fatalf("unexpected record order: %s, %s, %s", a.SampleID, b.SampleID, c.SampleID)
	}

	if a.Status != domain.StatusOK || !almostEqual(a.MeanNND, 3) || !almostEqual(a.MeanInverseNND, 1.0/3.0) {
		t.Errorf("cellA: got %+v", a)
	}
	if b.Status != domain.StatusDegenerateDuplicatePoints || b.MeanNND != 0 || !math.IsNaN(b.MeanInverseNND) {
		t.Errorf("cellB: got %+v", b)
	}
	if c.Status != domain.StatusInsufficientPoints || c.PunctaCount != 1 || !math.IsNaN(c.MeanNND) || !math.IsNaN(c.MeanInverseNND) {
		t.Errorf("cellC: got %+v", c)
	}

	wantName := "NND_Summary_20250417_150405.csv"
	if filepath.Base(result.OutputPath) != wantName {
		t.Errorf("expected output name %s, got %s", wantName, filepath.Base(result.OutputPath))
	}

	rows := readCSV(t, result.OutputPath)
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	wantHeader := []string{"sample_id", "label", "puncta_count", "mean_nnd", "mean_inverse_nnd", "status"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][3] != "3.00000" || rows[1][4] != "0.33333" || rows[1][5] != "ok" {
		t.Errorf("cellA row: %v", rows[1])
	}
	if rows[2][3] != "0.00000" || rows[2][4] != "NaN" || rows[2][5] != "degenerate_duplicate_points" {
		t.Errorf("cellB row: %v", rows[2])
	}
	if rows[3][2] != "1" || rows[3][3] != "NaN" || rows[3][4] != "NaN" || rows[3][5] != "insufficient_points" {
		t.Errorf("cellC row: %v", rows[3])
	}
}

func TestRun_MalformedSampleDoesNotAffectOthers(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "cellA.csv", "X,Y\n0,0\n0,3\n")
	writeSample(t, dir, "cellB.csv", "X,Y\n0,0\n4,0\n")

	cfg := DefaultConfig()
	cfg.InputDir = dir

	clean, err := Run(context.Background(), cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("clean run: %v", err)
	}

	writeSample(t, dir, "broken.csv", "X,Y\n1,garbage\n")

	mixed, err := Run(context.Background(), cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("mixed run: %v", err)
	}

	if !reflect.DeepEqual(clean.Records, mixed.Records) {
		t.Errorf("valid sample metrics changed after adding a malformed file:\nclean: %+v\nmixed: %+v",
			clean.Records, mixed.Records)
	}
	if len(mixed.Skipped) != 1 {
		t.Fatalf("expected 1 skipped sample, got %d", len(mixed.Skipped))
	}
	if !errors.Is(mixed.Skipped[0].Err, domain.ErrMalformedValue) {
		t.Errorf("expected ErrMalformedValue, got %v", mixed.Skipped[0].Err)
	}
}

func TestRun_DeterministicOrderAcrossRepeats(t *testing.T) {
	dir := t.TempDir()
	names := []string{"zeta.csv", "alpha.csv", "mid.csv", "beta.csv"}
	for _, n := range names {
		writeSample(t, dir, n, "X,Y\n0,0\n1,0\n")
	}

	cfg := DefaultConfig()
	cfg.InputDir = dir
	cfg.OutputDir = t.TempDir()

	var orders [][]string
	for i := 0; i < 3; i++ {
		result, err := Run(context.Background(), cfg, WithClock(fixedClock))
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		var ids []string
		for _, r := range result.Records {
			ids = append(ids, r.SampleID)
		}
		orders = append(orders, ids)
	}

	want := []string{"alpha", "beta", "mid", "zeta"}
	for i, got := range orders {
		if !reflect.DeepEqual(got, want) {
			t.Errorf("run %d: expected order %v, got %v", i, want, got)
		}
	}
}

func TestRun_WorkersMatchSequential(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "a.csv", "X,Y\n0,0\n0,3\n7,7\n")
	writeSample(t, dir, "b.csv", "X,Y\n0,0\n")
	writeSample(t, dir, "c.csv", "X,Y\n1,1\n1,1\n")
	writeSample(t, dir, "d.csv", "X,Y\n0,0\n2,0\n4,0\n6,0\n")
	writeSample(t, dir, "e.csv", "X,Y\nbad,1\n")

	seqCfg := DefaultConfig()
	seqCfg.InputDir = dir
	seqCfg.OutputDir = t.TempDir()

	parCfg := seqCfg
	parCfg.OutputDir = t.TempDir()
	parCfg.Workers = 4

	seq, err := Run(context.Background(), seqCfg, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := Run(context.Background(), parCfg, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if len(seq.Records) != len(par.Records) {
		t.Fatalf("record count mismatch: %d vs %d", len(seq.Records), len(par.Records))
	}
	for i := range seq.Records {
		s, p := seq.Records[i], par.Records[i]
		// NaN != NaN, so compare fields explicitly.
		if s.SampleID != p.SampleID || s.PunctaCount != p.PunctaCount || s.Status != p.Status {
			t.Errorf("record %d differs: %+v vs %+v", i, s, p)
		}
		if formatMetric(s.MeanNND) != formatMetric(p.MeanNND) ||
			formatMetric(s.MeanInverseNND) != formatMetric(p.MeanInverseNND) {
			t.Errorf("record %d metrics differ: %+v vs %+v", i, s, p)
		}
	}
	if len(seq.Skipped) != 1 || len(par.Skipped) != 1 {
		t.Errorf("expected 1 skipped sample in both runs, got %d and %d", len(seq.Skipped), len(par.Skipped))
	}
}

func TestRun_NoValidSamples(t *testing.T) {
	t.Run("empty folder", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.InputDir = t.TempDir()
		_, err := Run(context.Background(), cfg)
		if !errors.Is(err, domain.ErrNoValidSamples) {
			t.Errorf("expected ErrNoValidSamples, got %v", err)
		}
	})

	t.Run("all samples invalid", func(t *testing.T) {
		dir := t.TempDir()
		writeSample(t, dir, "a.csv", "foo,bar\n1,2\n")
		writeSample(t, dir, "b.csv", "X,Y\n1,nope\n")

		cfg := DefaultConfig()
		cfg.InputDir = dir
		_, err := Run(context.Background(), cfg)
		if !errors.Is(err, domain.ErrNoValidSamples) {
			t.Errorf("expected ErrNoValidSamples, got %v", err)
		}

		// Nothing may be written on a failed batch.
		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			t.Fatalf("readdir: %v", readErr)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "NND_Summary_") {
				t.Errorf("summary written despite batch failure: %s", e.Name())
			}
		}
	})
}

func TestRun_SkipsPreviousOutputFiles(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "cellA.csv", "X,Y\n0,0\n0,3\n")
	// A summary from an earlier run, living in the same folder.
	writeSample(t, dir, "NND_Summary_20240101_000000.csv",
		"sample_id,label,puncta_count,mean_nnd,mean_inverse_nnd,status\nold,,2,1.00000,1.00000,ok\n")

	cfg := DefaultConfig()
	cfg.InputDir = dir

	result, err := Run(context.Background(), cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].SampleID != "cellA" {
		t.Errorf("previous output was treated as a sample: %+v", result.Records)
	}
}

func TestRun_ExplicitOutputPath(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "cellA.csv", "X,Y\n0,0\n0,3\n")

	out := filepath.Join(t.TempDir(), "summary.csv")
	cfg := DefaultConfig()
	cfg.InputDir = dir
	cfg.OutputPath = out

	result, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.OutputPath != out {
		t.Errorf("expected output at %s, got %s", out, result.OutputPath)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestRun_OutputWriteFailed(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "cellA.csv", "X,Y\n0,0\n0,3\n")

	cfg := DefaultConfig()
	cfg.InputDir = dir
	cfg.OutputDir = filepath.Join(dir, "missing", "nested")

	_, err := Run(context.Background(), cfg)
	if !errors.Is(err, domain.ErrOutputWriteFailed) {
		t.Errorf("expected ErrOutputWriteFailed, got %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	_, err := Run(context.Background(), cfg)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRun_ArchivesRun(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "cellA.csv", "X,Y,Label\n0,0,ctrl\n0,3,ctrl\n")

	cfg := DefaultConfig()
	cfg.InputDir = dir
	cfg.ArchivePath = filepath.Join(t.TempDir(), "history.db")

	if _, err := Run(context.Background(), cfg, WithClock(fixedClock)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(cfg.ArchivePath); err != nil {
		t.Errorf("archive not created: %v", err)
	}
}

func TestIsSampleFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"cellA.csv", true},
		{"cellA.CSV", true},
		{"/data/rois/cellA.csv", true},
		{"notes.txt", false},
		{"NND_Summary_20250417_150405.csv", false},
		{"cellA.csv.bak", false},
	}
	for _, tt := range tests {
		if got := IsSampleFile(tt.name); got != tt.want {
			t.Errorf("IsSampleFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
