// Package ingestion loads a document corpus into the knowledge store.
//
// The extract stage of the toolchain writes one JSON document per file;
// the coordinator reads them, chunks the text, embeds chunks on a worker
// pool, and atomically replaces the knowledge collection. Per-document
// and per-chunk failures are logged and skipped so one bad input cannot
// abort a corpus load; only setup failures (missing corpus directory,
// broken store) are hard errors.
package ingestion
