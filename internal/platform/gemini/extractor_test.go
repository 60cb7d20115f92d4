package gemini

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"text/template"
	"time"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/extraction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	tmpl, err := template.New("extract").Parse(promptTemplate)
	require.NoError(t, err)
	return &Extractor{
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
		tmpl:   tmpl,
	}
}

func listedTasks() []extraction.ListedTask {
	due := testNow.Add(4 * time.Hour)
	return []extraction.ListedTask{
		{Position: 1, ID: uuid.New(), Description: "finish report", Due: &due},
		{Position: 2, ID: uuid.New(), Description: "call mom"},
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("bare_json", func(t *testing.T) {
		schema, err := parseResponse(`{"creations":[{"title":"buy milk","due_date":"","priority":"normal"}]}`)
		require.NoError(t, err)
		require.Len(t, schema.Creations, 1)
		assert.Equal(t, "buy milk", schema.Creations[0].Title)
	})

	t.Run("fenced_json", func(t *testing.T) {
		schema, err := parseResponse("```json\n{\"completions\":[{\"position\":2}]}\n```")
		require.NoError(t, err)
		require.Len(t, schema.Completions, 1)
		assert.Equal(t, 2, schema.Completions[0].Position)
	})

	t.Run("no_json", func(t *testing.T) {
		_, err := parseResponse("I could not understand that.")
		assert.ErrorIs(t, err, extraction.ErrInvalidResponse)
	})

	t.Run("malformed_json", func(t *testing.T) {
		_, err := parseResponse(`{"creations":[`)
		assert.ErrorIs(t, err, extraction.ErrInvalidResponse)
	})
}

func TestResponseText(t *testing.T) {
	content := &genai.Content{Parts: []*genai.Part{
		{Text: `{"completions":`},
		nil,
		{Text: `[{"position":1}]}`},
	}}

	assert.Equal(t, `{"completions":[{"position":1}]}`, responseText(content))

	schema, err := parseResponse(responseText(content))
	require.NoError(t, err)
	require.Len(t, schema.Completions, 1)
}

func TestToBatchCreations(t *testing.T) {
	e := testExtractor(t)

	t.Run("concrete_due_from_model", func(t *testing.T) {
		schema := &responseSchema{Creations: []creationItem{
			{Title: "Call mom", DueDate: "2025-03-13 15:00:00", Priority: "high"},
		}}

		batch := e.toBatch(context.Background(), schema, "call mom tomorrow at 3pm", nil, testNow)

		require.Len(t, batch, 1)
		in := batch[0]
		assert.Equal(t, domain.IntentCreate, in.Kind)
		assert.Equal(t, "Call mom", in.Description)
		assert.Equal(t, domain.PriorityHigh, in.Priority)
		require.NotNil(t, in.Due)
		assert.True(t, in.Due.Equal(time.Date(2025, 3, 13, 15, 0, 0, 0, time.UTC)))
		assert.False(t, in.Vague)
	})

	t.Run("vague_marker_from_prepass", func(t *testing.T) {
		schema := &responseSchema{Creations: []creationItem{
			{Title: "Call mom", DueDate: "", Priority: ""},
		}}

		batch := e.toBatch(context.Background(), schema, "remind me later today to call mom", nil, testNow)

		require.Len(t, batch, 1)
		in := batch[0]
		assert.Nil(t, in.Due)
		assert.True(t, in.Vague)
		assert.Equal(t, "later today", in.VaguePhrase)
	})

	t.Run("prepass_fills_missing_due", func(t *testing.T) {
		schema := &responseSchema{Creations: []creationItem{
			{Title: "Finish report", DueDate: "", Priority: "normal"},
		}}

		batch := e.toBatch(context.Background(), schema, "finish report by friday", nil, testNow)

		require.Len(t, batch, 1)
		require.NotNil(t, batch[0].Due)
		assert.False(t, batch[0].Vague)
	})

	t.Run("empty_title_skipped", func(t *testing.T) {
		schema := &responseSchema{Creations: []creationItem{{Title: "  "}}}
		batch := e.toBatch(context.Background(), schema, "hm", nil, testNow)
		assert.Empty(t, batch)
	})
}

func TestToBatchReferences(t *testing.T) {
	e := testExtractor(t)
	tasks := listedTasks()

	t.Run("completion_maps_position_to_id", func(t *testing.T) {
		schema := &responseSchema{Completions: []refItem{{Position: 2}}}

		batch := e.toBatch(context.Background(), schema, "done 2", tasks, testNow)

		require.Len(t, batch, 1)
		assert.Equal(t, domain.IntentComplete, batch[0].Kind)
		assert.Equal(t, tasks[1].ID, batch[0].TaskID)
	})

	t.Run("out_of_range_position_dropped_rest_applied", func(t *testing.T) {
		schema := &responseSchema{Completions: []refItem{{Position: 7}, {Position: 1}}}

		batch := e.toBatch(context.Background(), schema, "done 7 and 1", tasks, testNow)

		require.Len(t, batch, 1)
		assert.Equal(t, tasks[0].ID, batch[0].TaskID)
	})

	t.Run("update_with_fields", func(t *testing.T) {
		schema := &responseSchema{Updates: []updateItem{
			{Position: 1, DueDate: "2025-03-14 09:00:00", Priority: "low"},
		}}

		batch := e.toBatch(context.Background(), schema, "push report to friday morning", tasks, testNow)

		require.Len(t, batch, 1)
		in := batch[0]
		assert.Equal(t, domain.IntentUpdate, in.Kind)
		assert.Equal(t, tasks[0].ID, in.TaskID)
		require.NotNil(t, in.Update.Due)
		require.NotNil(t, in.Update.Priority)
		assert.Equal(t, domain.PriorityLow, *in.Update.Priority)
		assert.Nil(t, in.Update.Description)
	})

	t.Run("empty_update_skipped", func(t *testing.T) {
		schema := &responseSchema{Updates: []updateItem{{Position: 1}}}
		batch := e.toBatch(context.Background(), schema, "update 1", tasks, testNow)
		assert.Empty(t, batch)
	})
}

func TestBuildPrompt(t *testing.T) {
	e := testExtractor(t)

	t.Run("includes_numbered_list_and_now", func(t *testing.T) {
		prompt, err := e.buildPrompt("done 1", listedTasks(), testNow)
		require.NoError(t, err)
		assert.Contains(t, prompt, "1. finish report (due 2025-03-12 14:00:00)")
		assert.Contains(t, prompt, "2. call mom")
		assert.Contains(t, prompt, "2025-03-12 10:00:00")
		assert.Contains(t, prompt, "done 1")
	})

	t.Run("empty_list_placeholder", func(t *testing.T) {
		prompt, err := e.buildPrompt("add buy milk", nil, testNow)
		require.NoError(t, err)
		assert.Contains(t, prompt, "No open tasks.")
	})

	t.Run("empty_utterance_fails", func(t *testing.T) {
		_, err := e.buildPrompt("   ", nil, testNow)
		assert.ErrorIs(t, err, extraction.ErrInvalidConfig)
	})
}
