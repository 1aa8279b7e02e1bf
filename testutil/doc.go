// Package testutil provides deterministic test data generators.
//
// The generators build random-walk trajectory shards from a fixed seed,
// so tests and benchmarks can reproduce exact datasets. The package
// also ships a brute-force position lookup used as ground truth when
// verifying query results.
package testutil
