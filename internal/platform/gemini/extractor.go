// Package gemini implements the extraction.Extractor interface using
// Google's Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/aviraln/nudge/internal/config"
	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/extraction"
	"github.com/aviraln/nudge/internal/timeparse"
	"google.golang.org/genai"
)

// wireTimeLayout is the timestamp format the model is instructed to emit.
const wireTimeLayout = "2006-01-02 15:04:05"

// promptData is the input for the prompt template.
type promptData struct {
	Now       string
	TaskList  string
	Utterance string
}

// promptTemplate instructs the model to answer with a single JSON object.
// Relative times are anchored on the supplied current time, and existing
// tasks are referenced by their list position only.
const promptTemplate = `You are a precise task-extraction engine for a to-do assistant.

Current time: {{.Now}}. Calculate every relative time ("in 5 minutes", "tonight", "tomorrow") from this exact time. Do not guess.

The user's current open tasks, numbered:
{{.TaskList}}

Read the user's message and respond with exactly one JSON object, no prose, using this structure:
- "creations": list of new tasks, each with "title", "due_date" ("2006-01-02 15:04:05" format, or "" when the message gives no concrete time) and "priority" (low/normal/high).
- "completions": list of {"position": N} referencing the numbered list above.
- "updates": list of {"position": N, "title": "...", "due_date": "...", "priority": "..."} with only the changed fields set.

Rules:
- Reference existing tasks only by their position in the numbered list.
- Never invent a timestamp for a vague phrase like "later today" or "soon"; leave due_date empty instead.
- Correct obvious spelling or transcription errors in task titles.
- If the message contains no task operation, respond with {}.

User message: {{.Utterance}}`

// responseSchema mirrors the JSON structure the model is asked to produce.
type responseSchema struct {
	Creations   []creationItem `json:"creations"`
	Completions []refItem      `json:"completions"`
	Updates     []updateItem   `json:"updates"`
}

type creationItem struct {
	Title    string `json:"title"`
	DueDate  string `json:"due_date"`
	Priority string `json:"priority"`
}

type refItem struct {
	Position int `json:"position"`
}

type updateItem struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	DueDate  string `json:"due_date"`
	Priority string `json:"priority"`
}

// jsonBlockRe pulls the JSON object out of a response that may wrap it
// in a markdown code fence.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// Extractor implements extraction.Extractor on top of the Gemini API.
type Extractor struct {
	logger *slog.Logger
	config config.LLMConfig
	tmpl   *template.Template
	client *genai.Client
	model  string
}

// NewExtractor creates a new Gemini-backed Extractor.
//
// Returns an error if the logger is nil, the configuration is invalid
// or the API client cannot be constructed.
func NewExtractor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Extractor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", extraction.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", extraction.ErrInvalidConfig)
	}

	tmpl, err := template.New("extract").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", extraction.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", extraction.ErrInvalidConfig, err)
	}

	return &Extractor{
		logger: logger.With(slog.String("component", "gemini_extractor")),
		config: cfg,
		tmpl:   tmpl,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

var _ extraction.Extractor = (*Extractor)(nil)

// Extract implements extraction.Extractor.Extract.
func (e *Extractor) Extract(
	ctx context.Context,
	utterance string,
	tasks []extraction.ListedTask,
	now time.Time,
) (domain.IntentBatch, error) {
	prompt, err := e.buildPrompt(utterance, tasks, now)
	if err != nil {
		return nil, err
	}

	schema, err := e.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return e.toBatch(ctx, schema, utterance, tasks, now), nil
}

func (e *Extractor) buildPrompt(utterance string, tasks []extraction.ListedTask, now time.Time) (string, error) {
	if strings.TrimSpace(utterance) == "" {
		return "", fmt.Errorf("%w: utterance cannot be empty", extraction.ErrInvalidConfig)
	}

	var list strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&list, "%d. %s", t.Position, t.Description)
		if t.Due != nil {
			fmt.Fprintf(&list, " (due %s)", t.Due.Format(wireTimeLayout))
		}
		list.WriteByte('\n')
	}
	if list.Len() == 0 {
		list.WriteString("No open tasks.\n")
	}

	var buf bytes.Buffer
	err := e.tmpl.Execute(&buf, promptData{
		Now:       now.Format(wireTimeLayout),
		TaskList:  list.String(),
		Utterance: utterance,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return buf.String(), nil
}

// callWithRetry calls the Gemini API with exponential backoff and jitter
// for transient failures. Malformed responses are not retried; per the
// error contract both cases surface as extraction.ErrUnavailable so the
// caller can apologize and ask the user to try again.
func (e *Extractor) callWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	maxRetries := e.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 1
	}
	baseDelaySeconds := e.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		e.logger.DebugContext(ctx, "calling gemini",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), nil)

		var schema *responseSchema
		transient := false
		switch {
		case err != nil:
			transient = true
		case resp == nil, len(resp.Candidates) == 0, resp.Candidates[0].Content == nil:
			err = fmt.Errorf("%w: no content generated", extraction.ErrInvalidResponse)
		case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
			err = fmt.Errorf("%w: content blocked by safety filters", extraction.ErrInvalidResponse)
		default:
			schema, err = parseResponse(responseText(resp.Candidates[0].Content))
		}

		if err == nil {
			return schema, nil
		}

		e.logger.WarnContext(ctx, "gemini call failed",
			"attempt", attempt+1,
			"transient", transient,
			"error", err)

		if !transient || attempt >= maxRetries {
			return nil, fmt.Errorf("%w: %v", extraction.ErrUnavailable, err)
		}

		// Exponential backoff with jitter, as delay = base * 2^attempt * [0.5, 1.0).
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", extraction.ErrUnavailable, ctx.Err())
		}
	}
}

// responseText concatenates the text parts of a candidate's content.
func responseText(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// parseResponse extracts and decodes the JSON object in the model output.
func parseResponse(text string) (*responseSchema, error) {
	raw := jsonBlockRe.FindString(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", extraction.ErrInvalidResponse)
	}

	var schema responseSchema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, fmt.Errorf("%w: %v", extraction.ErrInvalidResponse, err)
	}

	return &schema, nil
}

// toBatch converts the wire schema into a domain intent batch.
//
// Operations referencing positions outside the supplied list are an
// extraction-validation failure: they are logged and dropped while the
// rest of the batch is preserved. Create intents without a concrete due
// time get the vague-marker flag from the temporal pre-pass.
func (e *Extractor) toBatch(
	ctx context.Context,
	schema *responseSchema,
	utterance string,
	tasks []extraction.ListedTask,
	now time.Time,
) domain.IntentBatch {
	prepass := timeparse.Resolve(utterance, now)

	byPosition := make(map[int]extraction.ListedTask, len(tasks))
	for _, t := range tasks {
		byPosition[t.Position] = t
	}

	var batch domain.IntentBatch

	for _, c := range schema.Creations {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}

		in := domain.Intent{
			Kind:        domain.IntentCreate,
			Description: title,
			Priority:    domain.NormalizePriority(c.Priority),
		}

		if due, ok := parseWireTime(c.DueDate, now.Location()); ok {
			in.Due = &due
		} else if prepass.At != nil {
			in.Due = prepass.At
		} else if prepass.Vague {
			in.Vague = true
			in.VaguePhrase = prepass.Phrase
		}

		batch = append(batch, in)
	}

	for _, c := range schema.Completions {
		ref, ok := byPosition[c.Position]
		if !ok {
			e.logger.WarnContext(ctx, "dropping completion with out-of-range position",
				"position", c.Position,
				"open_tasks", len(tasks))
			continue
		}
		batch = append(batch, domain.Intent{
			Kind:   domain.IntentComplete,
			TaskID: ref.ID,
		})
	}

	for _, u := range schema.Updates {
		ref, ok := byPosition[u.Position]
		if !ok {
			e.logger.WarnContext(ctx, "dropping update with out-of-range position",
				"position", u.Position,
				"open_tasks", len(tasks))
			continue
		}

		var upd domain.TaskUpdate
		if title := strings.TrimSpace(u.Title); title != "" {
			upd.Description = &title
		}
		if due, ok := parseWireTime(u.DueDate, now.Location()); ok {
			upd.Due = &due
		}
		if u.Priority != "" {
			p := domain.NormalizePriority(u.Priority)
			upd.Priority = &p
		}
		if upd.Empty() {
			continue
		}

		batch = append(batch, domain.Intent{
			Kind:   domain.IntentUpdate,
			TaskID: ref.ID,
			Update: upd,
		})
	}

	return batch
}

func parseWireTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	at, err := time.ParseInLocation(wireTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}
