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


package core

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata internally and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - SourceDocument must not be empty
//   - Ordinal must not be negative
//
// NOT validated (populated later in the pipeline):
//   - Metadata (optional)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if chunk.SourceDocument == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySourceDocument)
	}

	if chunk.Ordinal < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeOrdinal)
	}

	return nil
}

// ValidateKnowledgeEntry validates a KnowledgeEntry before it is written
// to the store. Degraded entries are still valid; availability wins over
// strict correctness during ingestion.
func ValidateKnowledgeEntry(entry *KnowledgeEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidChunk)
	}

	if err := ValidateChunk(entry.Chunk); err != nil {
		return err
	}

	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyVector)
	}

	return nil
}

// Validate checks the draft against the target schema. Any mismatch is
// reported as ErrInvalidPlanDraft with the underlying field errors; the
// draft is never silently coerced.
func (d *PlanDraft) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: draft is nil", ErrInvalidPlanDraft)
	}

	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlanDraft, err)
	}

	return nil
}
