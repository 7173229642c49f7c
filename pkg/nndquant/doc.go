// Package nndquant is the batch nearest-neighbor-distance analysis engine.
//
// Given a folder of per-sample coordinate CSVs (2D centroid positions of
// detected puncta, one file per ROI), it computes for every sample the mean
// distance from each point to its nearest other point and the mean inverse
// distance (a clusterization score), and writes one timestamped summary table
// for the whole batch.
//
// The single entry point is [Run]:
//
//	cfg := nndquant.DefaultConfig()
//	cfg.InputDir = "/data/experiment_3/rois"
//	result, err := nndquant.Run(ctx, cfg, nndquant.WithLogger(log))
//
// A failure to load one sample never aborts the batch: the sample is recorded
// in BatchResult.Skipped and surfaced through the logger. A batch in which no
// sample loads at all fails with domain.ErrNoValidSamples and writes nothing.
package nndquant
