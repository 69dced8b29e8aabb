package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() *PlanDraft {
	return &PlanDraft{
		Title:      "Search service rollout",
		Summary:    "Stand up the new search service behind a feature flag.",
		Objectives: []string{"index existing corpus", "serve queries under 200ms"},
		Phases: []PlanPhase{
			{
				Name: "Foundation",
				Goal: "Provision infrastructure",
				Tasks: []PlanTask{
					{Description: "Create index schema", EffortDays: 2},
				},
			},
		},
		Risks: []PlanRisk{
			{Description: "Index lag during cutover", Severity: "medium", Mitigation: "dual-write window"},
		},
	}
}

func TestPlanDraftValidate_Valid(t *testing.T) {
	require.NoError(t, validDraft().Validate())
}

func TestPlanDraftValidate_MissingRequiredField(t *testing.T) {
	draft := validDraft()
	draft.Title = ""

	err := draft.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlanDraft)
}

func TestPlanDraftValidate_EmptyPhases(t *testing.T) {
	draft := validDraft()
	draft.Phases = nil

	err := draft.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlanDraft)
}

func TestPlanDraftValidate_NestedFieldMissing(t *testing.T) {
	draft := validDraft()
	draft.Phases[0].Tasks[0].Description = ""

	err := draft.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlanDraft)
}

func TestPlanDraftValidate_InvalidSeverity(t *testing.T) {
	draft := validDraft()
	draft.Risks[0].Severity = "catastrophic"

	err := draft.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlanDraft)
}

func TestPlanDraftValidate_Nil(t *testing.T) {
	var draft *PlanDraft
	assert.ErrorIs(t, draft.Validate(), ErrInvalidPlanDraft)
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{"valid", NewChunk("doc.md", 0, "text", nil), nil},
		{"nil", nil, ErrInvalidChunk},
		{"empty text", &Chunk{SourceDocument: "doc.md"}, ErrEmptyChunkText},
		{"no source", &Chunk{Text: "text"}, ErrEmptySourceDocument},
		{"negative ordinal", &Chunk{SourceDocument: "doc.md", Text: "text", Ordinal: -1}, ErrNegativeOrdinal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateKnowledgeEntry(t *testing.T) {
	entry := &KnowledgeEntry{
		Chunk:  NewChunk("doc.md", 0, "text", nil),
		Vector: []float32{0.1, 0.2},
	}
	require.NoError(t, ValidateKnowledgeEntry(entry))

	entry.Vector = nil
	assert.ErrorIs(t, ValidateKnowledgeEntry(entry), ErrEmptyVector)
}
