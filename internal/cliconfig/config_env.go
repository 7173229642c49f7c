package cliconfig

import "os"

// ApplyEnvConfig applies NNDQUANT_* environment variables to the Config.
// Environment values override file config but are overridden by explicitly
// set flags (checked via the changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("input", os.Getenv("NNDQUANT_INPUT_DIR"), &cfg.InputDir)
	s.setString("output-dir", os.Getenv("NNDQUANT_OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("output", os.Getenv("NNDQUANT_OUTPUT_PATH"), &cfg.OutputPath)
	s.setString("archive", os.Getenv("NNDQUANT_ARCHIVE_PATH"), &cfg.ArchivePath)
	s.setString("log-level", os.Getenv("NNDQUANT_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("workers", os.Getenv("NNDQUANT_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setDuration("debounce", os.Getenv("NNDQUANT_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("NNDQUANT_WATCH"), &cfg.Watch)

	return nil
}
