package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/punctalab/nndquant/internal/cliconfig"
	"github.com/punctalab/nndquant/internal/domain"
	"github.com/punctalab/nndquant/internal/watch"
	"github.com/punctalab/nndquant/pkg/nndquant"
)

const helpDescription = `
Batch nearest-neighbor-distance analysis for puncta centroid tables.

Point nndquant at a folder of per-ROI CSV exports (Fiji "Analyze Particles",
columns X, Y and optionally Label) and it computes, per sample, the mean
nearest-neighbor distance and the mean inverse NND (clusterization score),
then writes one timestamped summary CSV for the whole batch.

Samples that fail to load are reported and skipped; they never abort the
batch. Samples with fewer than 2 points, or with coincident duplicate points,
appear in the summary with undefined metrics and an explanatory status.
`

var exampleUsage = strings.TrimSpace(`
  nndquant --input /data/exp3/rois
  nndquant --input /data/exp3/rois --workers 4 --archive /data/nnd_history.db
  nndquant --input /data/exp3/rois --watch --debounce 5s
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "nndquant",
		Short:   "Batch nearest-neighbor-distance analysis for puncta centroid tables",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default ~/.nndquant/config.toml),
			// then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			var err error
			log, err = cliconfig.SetLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Info().Msg("received signal, stopping...")
				cancel()
			}()

			engineCfg := nndquant.Config{
				InputDir:    cfg.InputDir,
				OutputDir:   cfg.OutputDir,
				OutputPath:  cfg.OutputPath,
				Workers:     cfg.Workers,
				ArchivePath: cfg.ArchivePath,
			}

			runOnce := func() error {
				result, err := nndquant.Run(ctx, engineCfg, nndquant.WithLogger(log))
				if err != nil {
					return err
				}
				for _, s := range result.Skipped {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %s: %v\n", s.Path, s.Err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d samples analyzed, %d skipped -> %s\n",
					len(result.Records), len(result.Skipped), result.OutputPath)
				return nil
			}

			if !cfg.Watch {
				return runOnce()
			}

			// Watch mode: one run up front, then re-run after each settled
			// burst of sample-file changes. A failed re-run (e.g. all files
			// temporarily invalid mid-copy) is logged, not fatal.
			if err := runOnce(); err != nil && !errors.Is(err, domain.ErrNoValidSamples) {
				return err
			}
			return watch.Run(ctx, cfg.InputDir, cfg.Debounce, nndquant.IsSampleFile, log, func() {
				if err := runOnce(); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("batch re-run failed")
				}
			})
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: ~/.nndquant/config.toml)")
	root.Flags().StringVarP(&cfg.InputDir, "input", "i", "", "folder containing one coordinate CSV per sample")
	root.Flags().StringVar(&cfg.OutputDir, "output-dir", "", "folder for the timestamped summary CSV (default: input folder)")
	root.Flags().StringVarP(&cfg.OutputPath, "output", "o", "", "exact summary file path; overwrites and disables timestamp naming")
	root.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "number of samples processed concurrently")
	root.Flags().StringVar(&cfg.ArchivePath, "archive", "", "SQLite run-history database to append results to (optional)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "re-run the batch when sample files change")
	root.Flags().DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period before a watch-triggered re-run")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace|debug|info|warn|error)")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("nndquant")
		os.Exit(1)
	}
}
