// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunk

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// DefaultMaxSize is the default fixed-window size in characters.
	DefaultMaxSize = 1000

	// DefaultOverlap is the default overlap between consecutive windows.
	DefaultOverlap = 100

	// DefaultMaxChunks bounds chunks per source document so pathological
	// inputs cannot run up embedding cost.
	DefaultMaxChunks = 500

	// DefaultMaxBytes is the default byte ceiling for ByteCap splitting.
	DefaultMaxBytes = 9000

	// byteCapShrinkFactor shrinks the candidate split point until its
	// UTF-8 byte length fits under the cap.
	byteCapShrinkFactor = 0.9
)

// sentence terminators ByteCap snaps back to, multi-byte CJK included.
const sentenceTerminators = ".!?\n。！？"

var (
	// ErrInvalidWindow indicates maxSize/overlap values that cannot make progress.
	ErrInvalidWindow = errors.New("chunk: maxSize must exceed twice the overlap")

	// ErrInvalidByteCap indicates a non-positive byte ceiling.
	ErrInvalidByteCap = errors.New("chunk: byte cap must be positive")
)

// Config holds chunking parameters shared by the ingestion pipeline.
type Config struct {
	MaxSize   int // Fixed-window size in characters
	Overlap   int // Overlap between consecutive windows in characters
	MaxChunks int // Hard cap on chunks per source document
	MaxBytes  int // Byte ceiling for ByteCap splitting
}

// DefaultConfig returns the canonical chunking defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:   DefaultMaxSize,
		Overlap:   DefaultOverlap,
		MaxChunks: DefaultMaxChunks,
		MaxBytes:  DefaultMaxBytes,
	}
}

// Validate checks that the configuration can make forward progress.
func (c Config) Validate() error {
	if c.MaxSize <= 0 || c.Overlap < 0 || c.MaxSize <= 2*c.Overlap {
		return ErrInvalidWindow
	}
	if c.MaxBytes <= 0 {
		return ErrInvalidByteCap
	}
	return nil
}

// FixedWindow splits text into windows of at most maxSize characters with
// roughly overlap characters shared between consecutive windows. Cuts snap
// backward to the nearest space within the overlap region so words are not
// split. Results are trimmed and empties dropped; at most maxChunks windows
// are produced. Deterministic: no randomness, no wall-clock dependence.
func FixedWindow(text string, maxSize, overlap, maxChunks int) ([]string, error) {
	if maxSize <= 0 || overlap < 0 || maxSize <= 2*overlap {
		return nil, ErrInvalidWindow
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	runes := []rune(text)
	var out []string

	start := 0
	for start < len(runes) && len(out) < maxChunks {
		end := start + maxSize

		// Final window: take the rest.
		if end >= len(runes) {
			if piece := strings.TrimSpace(string(runes[start:])); piece != "" {
				out = append(out, piece)
			}
			break
		}

		// Snap backward from the window end to the nearest space, but not
		// past the overlap region, so the cut never splits a word unless
		// the region contains none.
		cut := end
		limit := end - overlap
		for i := end; i > limit; i-- {
			if unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}

		if piece := strings.TrimSpace(string(runes[start:cut])); piece != "" {
			out = append(out, piece)
		}

		// The next window re-reads the trailing overlap characters.
		start = cut - overlap
	}

	return out, nil
}

// ByteCap splits text into chunks whose UTF-8 encoding never exceeds
// maxBytes. Used when a downstream API enforces a byte ceiling rather than
// a character ceiling, which differs for multi-byte text. The candidate
// split point shrinks by a fixed factor until it fits, then snaps backward
// to the nearest sentence terminator, else the nearest space, else the raw
// cap. Chunks have no character-length ceiling, only the byte ceiling.
func ByteCap(text string, maxBytes, maxChunks int) ([]string, error) {
	if maxBytes <= 0 {
		return nil, ErrInvalidByteCap
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	var out []string
	remaining := []rune(text)

	for len(remaining) > 0 && len(out) < maxChunks {
		if len(string(remaining)) <= maxBytes {
			if piece := strings.TrimSpace(string(remaining)); piece != "" {
				out = append(out, piece)
			}
			break
		}

		// Shrink the candidate until the byte length fits under the cap.
		n := len(remaining)
		for n > 1 && len(string(remaining[:n])) > maxBytes {
			shrunk := int(float64(n) * byteCapShrinkFactor)
			if shrunk >= n {
				shrunk = n - 1
			}
			n = shrunk
		}

		cut := snapSplit(remaining, n)

		if piece := strings.TrimSpace(string(remaining[:cut])); piece != "" {
			out = append(out, piece)
		}
		remaining = remaining[cut:]
	}

	return out, nil
}

// snapSplit moves a split point at n backward to just after the nearest
// sentence terminator, else the nearest space, else leaves it at n.
func snapSplit(runes []rune, n int) int {
	for i := n; i > 1; i-- {
		if strings.ContainsRune(sentenceTerminators, runes[i-1]) {
			return i
		}
	}
	for i := n; i > 1; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return n
}
