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


package generate

import (
	"strings"
	"text/template"

	"github.com/poiesic/planforge/core"
)

const draftResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "title": {"type": "string", "minLength": 3},
    "summary": {"type": "string"},
    "objectives": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": 1
    },
    "phases": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "goal": {"type": "string"},
          "tasks": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "properties": {
                "description": {"type": "string"},
                "effort_days": {"type": "number", "minimum": 0}
              },
              "required": ["description"],
              "additionalProperties": false
            }
          }
        },
        "required": ["name", "goal", "tasks"],
        "additionalProperties": false
      }
    },
    "risks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "description": {"type": "string"},
          "severity": {"type": "string", "enum": ["low", "medium", "high"]},
          "mitigation": {"type": "string"}
        },
        "required": ["description", "severity"],
        "additionalProperties": false
      }
    }
  },
  "required": ["title", "summary", "objectives", "phases"],
  "additionalProperties": false
}`

const systemPrompt = `You are a senior technical planner. You produce development plans as JSON documents.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

` + draftResponseSchema + `

Rules:
- Ground every phase and task in the provided context where possible. Do not hallucinate project details.
- When the context is silent on a detail, state a reasonable default rather than inventing specifics.
- Severity must be exactly one of: low, medium, high.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

// userPromptTemplate renders the subject and retrieved context. Chunks
// appear in the order retrieval ranked them, labelled by source, so the
// same inputs always produce the same prompt.
var userPromptTemplate = template.Must(template.New("draft").Parse(
	`Subject: {{.Subject}}
{{if .Chunks}}
Context from the knowledge base, most relevant first:
{{range .Chunks}}
--- {{.SourceDocument}} (section {{.Ordinal}}) ---
{{.Text}}
{{end}}{{else}}
No knowledge base context is available for this subject.
{{end}}
Produce the development plan now.`))

type promptData struct {
	Subject string
	Chunks  []*core.Chunk
}

// renderUserPrompt builds the deterministic user message.
func renderUserPrompt(subject string, chunks []*core.Chunk) (string, error) {
	var sb strings.Builder
	err := userPromptTemplate.Execute(&sb, promptData{Subject: subject, Chunks: chunks})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
