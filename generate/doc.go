// Package generate produces schema-validated plan drafts from a subject
// and retrieved knowledge.
//
// The pipeline assembles a bounded context from retrieved chunks, renders
// a deterministic prompt, executes the draft-generation task through the
// orchestrator, and parses and validates the model output. Malformed
// output surfaces as *ParseError and schema violations as
// *ValidationError; the pipeline never silently coerces an invalid draft.
package generate
