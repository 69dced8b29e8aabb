package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/planforge/ai"
	"github.com/poiesic/planforge/core"
)

const validDraftJSON = `{
  "title": "Search Service Rollout",
  "summary": "Introduce the semantic search service in three phases.",
  "objectives": ["Ship the ingestion path", "Expose the query API"],
  "phases": [
    {
      "name": "Foundation",
      "goal": "Stand up storage and ingestion",
      "tasks": [
        {"description": "Provision the store", "effort_days": 2},
        {"description": "Wire the ingestion job", "effort_days": 3}
      ]
    }
  ],
  "risks": [
    {"description": "Embedding provider outage", "severity": "medium", "mitigation": "Degraded placeholders"}
  ]
}`

// fakeExecutor records payloads and returns canned responses.
type fakeExecutor struct {
	response string
	err      error
	payloads []*ai.TaskPayload
	tasks    []string
}

func (f *fakeExecutor) ExecuteTask(ctx context.Context, task string, payload *ai.TaskPayload, opts *ai.ExecOptions) (*ai.NormalizedResult, error) {
	f.tasks = append(f.tasks, task)
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.NormalizedResult{Provider: "fake", Text: f.response}, nil
}

func TestGenerate_ValidDraft(t *testing.T) {
	exec := &fakeExecutor{response: validDraftJSON}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	draft, err := pipeline.Generate(context.Background(), Request{Subject: "search service"})
	require.NoError(t, err)

	assert.Equal(t, "Search Service Rollout", draft.Title)
	require.Len(t, draft.Phases, 1)
	assert.Len(t, draft.Phases[0].Tasks, 2)
	require.Len(t, exec.tasks, 1)
	assert.Equal(t, ai.TaskGenerateDraft, exec.tasks[0])
}

func TestGenerate_StripsCodeFences(t *testing.T) {
	exec := &fakeExecutor{response: "```json\n" + validDraftJSON + "\n```"}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	draft, err := pipeline.Generate(context.Background(), Request{Subject: "search service"})
	require.NoError(t, err)
	assert.Equal(t, "Search Service Rollout", draft.Title)
}

func TestGenerate_RepairsMissingKeyQuote(t *testing.T) {
	// The model dropped the opening quote on "summary".
	broken := strings.Replace(validDraftJSON, `"summary":`, `summary":`, 1)
	exec := &fakeExecutor{response: broken}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	draft, err := pipeline.Generate(context.Background(), Request{Subject: "search service"})
	require.NoError(t, err)
	assert.NotEmpty(t, draft.Summary)
}

func TestGenerate_UnparsableOutput(t *testing.T) {
	exec := &fakeExecutor{response: "I am sorry, I cannot produce JSON today."}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	_, err = pipeline.Generate(context.Background(), Request{Subject: "search service"})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Raw, "cannot produce JSON")
	assert.Len(t, exec.tasks, 1, "parse failures must not trigger regeneration")
}

func TestGenerate_MissingRequiredField(t *testing.T) {
	noTitle := strings.Replace(validDraftJSON, `"title": "Search Service Rollout",`, "", 1)
	exec := &fakeExecutor{response: noTitle}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	_, err = pipeline.Generate(context.Background(), Request{Subject: "search service"})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ErrorIs(t, err, core.ErrInvalidPlanDraft)
}

func TestGenerate_InvalidSeverity(t *testing.T) {
	badSeverity := strings.Replace(validDraftJSON, `"severity": "medium"`, `"severity": "catastrophic"`, 1)
	exec := &fakeExecutor{response: badSeverity}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	_, err = pipeline.Generate(context.Background(), Request{Subject: "search service"})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestGenerate_ExecutorErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("all providers down")
	exec := &fakeExecutor{err: sentinel}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	_, err = pipeline.Generate(context.Background(), Request{Subject: "search service"})
	assert.ErrorIs(t, err, sentinel)
}

func TestGenerate_EmptySubject(t *testing.T) {
	pipeline, err := NewPipeline(&fakeExecutor{response: validDraftJSON})
	require.NoError(t, err)

	_, err = pipeline.Generate(context.Background(), Request{Subject: "  "})
	assert.Error(t, err)
}

func TestGenerate_ContextBudgetDropsWholeChunks(t *testing.T) {
	exec := &fakeExecutor{response: validDraftJSON}
	pipeline, err := NewPipeline(exec, WithMaxContextChars(60))
	require.NoError(t, err)

	fits := core.NewChunk("a.md", 0, strings.Repeat("x", 50), nil)
	dropped := core.NewChunk("b.md", 0, strings.Repeat("y", 50), nil)

	_, err = pipeline.Generate(context.Background(), Request{
		Subject:   "search service",
		Retrieved: []*core.Chunk{fits, dropped},
	})
	require.NoError(t, err)

	require.Len(t, exec.payloads, 1)
	prompt := exec.payloads[0].Prompt
	assert.Contains(t, prompt, fits.Text)
	assert.NotContains(t, prompt, dropped.Text)
}

func TestGenerate_PromptIsDeterministic(t *testing.T) {
	exec := &fakeExecutor{response: validDraftJSON}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	req := Request{
		Subject: "search service",
		Retrieved: []*core.Chunk{
			core.NewChunk("guide.md", 0, "first section", nil),
			core.NewChunk("guide.md", 1, "second section", nil),
		},
	}

	_, err = pipeline.Generate(context.Background(), req)
	require.NoError(t, err)
	_, err = pipeline.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, exec.payloads, 2)
	assert.Equal(t, exec.payloads[0].Prompt, exec.payloads[1].Prompt)
	assert.Contains(t, exec.payloads[0].Prompt, "guide.md")
}

func TestGenerate_NoContextPrompt(t *testing.T) {
	exec := &fakeExecutor{response: validDraftJSON}
	pipeline, err := NewPipeline(exec)
	require.NoError(t, err)

	_, err = pipeline.Generate(context.Background(), Request{Subject: "search service"})
	require.NoError(t, err)

	require.Len(t, exec.payloads, 1)
	assert.Contains(t, exec.payloads[0].Prompt, "No knowledge base context")
}
