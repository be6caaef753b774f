// Package progress carries indexing progress between a running pipeline and
// whoever is watching it.
//
// In process, progress is a stream of typed Events delivered to a Reporter.
// Across a process boundary the same events travel as text lines on the
// child's stdout:
//
//	Progress: 50
//	Error: embedding failed: rate limited
//	Index build timestamp: 2025-01-02T03:04:05Z
//
// Encoder writes that format and ParseLine / Scan read it back. Lines without
// one of the three prefixes are not part of the protocol and are ignored by
// the parser.
//
// Tracker turns item counts into percentage events inside a band of the
// overall range, so consecutive pipeline stages can share a single 0-100
// progress bar.
package progress
