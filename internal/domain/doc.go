// Package domain contains the core domain entities and value objects for nndquant.
//
// It has no dependencies on infrastructure concerns (file system, CSV parsing,
// logging, storage) and contains only the types and invariants the engine is
// built around.
//
// # Entities
//
//   - [PointSet]: An immutable ordered set of 2D centroid coordinates for one sample
//   - [Sample]: A loaded sample (identifier, optional label, point set)
//   - [SummaryRecord]: One output row per sample (counts, NND metrics, status)
//   - [BatchResult]: The consolidated result of one batch run
//
// Undefined metric values are represented by NaN and are always paired with a
// non-OK [Status] explaining why; they are never the product of arithmetic.
package domain
