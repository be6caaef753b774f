// Package ingestion builds the vector index from a directory of text files.
//
// A Pipeline run moves through four stages:
//   - load: every file matching the pattern (default *.txt) in the source
//     directory becomes a core.Document; unreadable files are skipped
//   - split: each document is cut into overlapping chunks independently
//   - embed: chunks are embedded in batches on a bounded worker pool, with
//     retries; any batch that still fails fails the run
//   - store: the store is reset, the chunks and a manifest are written and
//     the store is flushed
//
// Run returns a Result with per-stage counts and the build timestamp, even
// when it also returns an error, so partial failures stay observable.
// Progress is reported to a progress.Reporter while the run is underway.
// A failed run never touches the store, so the previous index stays
// queryable.
package ingestion
