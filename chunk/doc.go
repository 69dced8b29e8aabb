// Package chunk splits raw document text into bounded, overlapping
// windows for embedding and retrieval. Both algorithms are deterministic
// and cap the number of chunks produced per source document.
package chunk
