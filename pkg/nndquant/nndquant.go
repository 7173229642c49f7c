package nndquant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/punctalab/nndquant/internal/archive"
	"github.com/punctalab/nndquant/internal/domain"
)

// outputPrefix names the generated summary files. Files carrying this prefix
// in the input folder are skipped during discovery so earlier runs never feed
// back into later ones.
const outputPrefix = "NND_Summary_"

// timestampLayout is the suffix appended to generated output file names.
const timestampLayout = "20060102_150405"

// Config holds the configuration for one batch run.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// InputDir is the folder containing one coordinate CSV per sample.
	// Required.
	InputDir string

	// OutputDir is where the timestamped summary CSV is written.
	// Defaults to InputDir, matching where acquisition tooling expects it.
	OutputDir string

	// OutputPath, when set, is the exact summary file path to write. It
	// bypasses timestamped naming and overwrites an existing file; use it
	// only when overwriting is explicitly wanted.
	OutputPath string

	// Workers is the number of goroutines processing samples. Values <= 1
	// mean sequential processing. Output order is deterministic either way.
	Workers int

	// ArchivePath, when set, appends every summary record of the run to a
	// SQLite run-history database at this path.
	ArchivePath string
}

// DefaultConfig returns a Config with default values. InputDir must be set
// before calling Run.
func DefaultConfig() Config {
	return Config{
		Workers: 1,
	}
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input folder is required", domain.ErrInvalidConfig)
	}
	info, err := os.Stat(c.InputDir)
	if err != nil {
		return fmt.Errorf("%w: input folder: %v", domain.ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a folder", domain.ErrInvalidConfig, c.InputDir)
	}
	if c.OutputDir == "" {
		c.OutputDir = c.InputDir
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// Run executes one batch: it enumerates the sample files under
// cfg.InputDir in lexicographic order, loads and analyzes each one, writes
// the consolidated summary table, and returns the BatchResult.
//
// Per-sample load failures are collected in BatchResult.Skipped and logged as
// warnings; they never abort the batch. Run fails as a whole with
// domain.ErrNoValidSamples when no sample loads, and with
// domain.ErrOutputWriteFailed when the summary cannot be written.
func Run(ctx context.Context, cfg Config, opts ...Option) (*domain.BatchResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	log := o.logger.With().Str("run_id", runID).Logger()

	files, err := discoverSamples(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no sample CSV files in %s", domain.ErrNoValidSamples, cfg.InputDir)
	}
	log.Info().Int("files", len(files)).Str("input", cfg.InputDir).Msg("starting batch")

	records, skipped := processAll(ctx, files, cfg.Workers, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: all %d sample files failed to load", domain.ErrNoValidSamples, len(skipped))
	}

	generatedAt := o.now()
	outPath := cfg.OutputPath
	if outPath == "" {
		name := outputPrefix + generatedAt.Format(timestampLayout) + ".csv"
		outPath = filepath.Join(cfg.OutputDir, name)
	}

	result := &domain.BatchResult{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Records:     records,
		Skipped:     skipped,
		OutputPath:  outPath,
	}

	if err := writeSummary(outPath, records); err != nil {
		return nil, err
	}
	log.Info().
		Int("samples", len(records)).
		Int("skipped", len(skipped)).
		Str("output", outPath).
		Msg("batch complete")

	if cfg.ArchivePath != "" {
		if err := archiveRun(ctx, cfg.ArchivePath, result); err != nil {
			return nil, err
		}
		log.Info().Str("archive", cfg.ArchivePath).Msg("run archived")
	}

	return result, nil
}

// archiveRun appends the run's records to the SQLite run history.
func archiveRun(ctx context.Context, path string, result *domain.BatchResult) error {
	ar, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer ar.Close()
	return ar.SaveRun(ctx, result)
}
