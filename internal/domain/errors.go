package domain

import "errors"

// Domain errors represent error conditions in the nndquant domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrUnreadable is returned when a sample file is missing or cannot be read.
	ErrUnreadable = errors.New("nndquant: sample file unreadable")

	// ErrSchemaInvalid is returned when a sample file lacks the required
	// X and Y coordinate columns.
	ErrSchemaInvalid = errors.New("nndquant: required columns missing")

	// ErrMalformedValue is returned when a coordinate cell cannot be parsed
	// as a floating-point number.
	ErrMalformedValue = errors.New("nndquant: non-numeric coordinate value")

	// ErrNoValidSamples is returned when every sample in a batch failed to
	// load. Nothing is written in that case.
	ErrNoValidSamples = errors.New("nndquant: no valid samples in input folder")

	// ErrOutputWriteFailed is returned when the summary table cannot be
	// written to the destination path.
	ErrOutputWriteFailed = errors.New("nndquant: output write failed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("nndquant: invalid configuration")
)
