package nndquant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/punctalab/nndquant/internal/domain"
	"github.com/punctalab/nndquant/internal/loader"
)

// IsSampleFile reports whether name looks like an input coordinate table: a
// .csv extension (case-insensitive) that is not a summary file from an
// earlier run.
func IsSampleFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".csv") && !strings.HasPrefix(base, outputPrefix)
}

// discoverSamples enumerates candidate sample files in dir. os.ReadDir
// returns entries sorted by name, which fixes the batch order.
func discoverSamples(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: input folder %s: %v", domain.ErrUnreadable, dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsSampleFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// processAll loads and analyzes every file, sequentially or with a worker
// pool. Results are assembled in discovery order regardless of completion
// order: each file owns a fixed slot indexed by its discovery position.
func processAll(ctx context.Context, files []string, workers int, log zerolog.Logger) ([]domain.SummaryRecord, []domain.SkippedSample) {
	type slot struct {
		record domain.SummaryRecord
		err    error
		done   bool
	}
	slots := make([]slot, len(files))

	process := func(i int) {
		s, err := loader.LoadSample(files[i])
		if err != nil {
			slots[i] = slot{err: err, done: true}
			return
		}
		slots[i] = slot{record: analyzeSample(s), done: true}
	}

	if workers <= 1 || len(files) == 1 {
		for i := range files {
			if ctx.Err() != nil {
				break
			}
			process(i)
		}
	} else {
		// Workers pull indexes from a channel; no shared mutable state
		// beyond the per-index slots.
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					process(i)
				}
			}()
		}
		for i := range files {
			select {
			case <-ctx.Done():
			case jobs <- i:
				continue
			}
			break
		}
		close(jobs)
		wg.Wait()
	}

	records := make([]domain.SummaryRecord, 0, len(files))
	var skipped []domain.SkippedSample
	for i, s := range slots {
		if !s.done {
			// Never dispatched: the run was cancelled.
			continue
		}
		if s.err != nil {
			log.Warn().Str("file", filepath.Base(files[i])).Err(s.err).Msg("sample skipped")
			skipped = append(skipped, domain.SkippedSample{Path: files[i], Err: s.err})
			continue
		}
		if s.record.Status != domain.StatusOK {
			log.Warn().
				Str("sample", s.record.SampleID).
				Int("puncta", s.record.PunctaCount).
				Str("status", string(s.record.Status)).
				Msg("metrics undefined")
		}
		records = append(records, s.record)
	}
	return records, skipped
}
