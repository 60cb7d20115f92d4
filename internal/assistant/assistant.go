// Package assistant orchestrates the message-handling pipeline: the
// temporal pre-pass and intent extraction, the clarification state
// machine, and the task lifecycle operations each intent triggers.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aviraln/nudge/internal/clarify"
	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/extraction"
	"github.com/aviraln/nudge/internal/platform/logger"
	"github.com/aviraln/nudge/internal/service"
)

// User-facing replies for failure modes. Extraction and store failures
// are retryable, not fatal.
const (
	replyExtractionDown = "Sorry, I couldn't process that right now. Please try again in a moment."
	replyStoreDown      = "Sorry, I couldn't reach your task list. Please try again."
	replyNoSuchTask     = "I couldn't find that task."
)

// Assistant handles inbound user messages. Messages from different
// users are processed concurrently; messages from the same user are
// serialized so clarification sessions never race.
type Assistant struct {
	extractor extraction.Extractor
	tasks     service.TaskService
	clarify   *clarify.Manager
	logger    *slog.Logger

	mu      sync.Mutex
	userMus map[string]*sync.Mutex
}

// New creates an Assistant.
// It returns an error if any of the required dependencies are nil.
func New(extractor extraction.Extractor, tasks service.TaskService, clarifier *clarify.Manager, log *slog.Logger) (*Assistant, error) {
	if extractor == nil {
		return nil, domain.NewValidationError("extractor", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if clarifier == nil {
		return nil, domain.NewValidationError("clarifier", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Assistant{
		extractor: extractor,
		tasks:     tasks,
		clarify:   clarifier,
		logger:    log.With(slog.String("component", "assistant")),
		userMus:   make(map[string]*sync.Mutex),
	}, nil
}

// userLock returns the mutex serializing one user's messages.
func (a *Assistant) userLock(userID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	mu, ok := a.userMus[userID]
	if !ok {
		mu = &sync.Mutex{}
		a.userMus[userID] = mu
	}
	return mu
}

// HandleMessage processes one inbound message and returns the reply
// text. The returned error is for the transport's logging; a human
// readable reply is returned even on failure.
func (a *Assistant) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	mu := a.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	log := logger.FromContextOrDefault(ctx, a.logger).With("user_id", userID)
	now := time.Now()

	// An open clarification session claims the message first.
	session, resolvedAt, result := a.clarify.Answer(userID, text, now)
	switch result {
	case clarify.ResultResolved:
		return a.finalizeClarified(ctx, log, session, resolvedAt)
	case clarify.ResultAbandoned, clarify.ResultExpired:
		log.Debug("clarification session discarded", "result", result)
		// The message now flows through the normal path.
	}

	open, err := a.tasks.ListOpen(ctx, userID)
	if err != nil {
		log.Error("failed to load open tasks", "error", err)
		return replyStoreDown, err
	}

	batch, err := a.extractor.Extract(ctx, text, extraction.NumberTasks(open), now)
	if err != nil {
		log.Error("intent extraction failed", "error", err)
		return replyExtractionDown, err
	}

	if batch.Empty() {
		// "show my tasks" and small talk extract to no operations; the
		// most useful answer is the current list.
		return renderTaskList(open), nil
	}

	return a.applyBatch(ctx, log, userID, batch, now)
}

// finalizeClarified merges the resolved time into the suspended partial
// task and creates it. Finalization is atomic from the user's point of
// view: on a store failure the session is restored so the answer can be
// retried, and no task exists without its due time.
func (a *Assistant) finalizeClarified(
	ctx context.Context,
	log *slog.Logger,
	session *domain.ClarificationSession,
	at time.Time,
) (string, error) {
	task, err := a.tasks.Create(ctx, session.UserID, session.Description, &at, session.Priority, session.Category)
	if err != nil {
		log.Error("failed to finalize clarified task", "error", err)
		a.clarify.Restore(session)
		return replyStoreDown, err
	}

	log.Info("clarified task created", "task_id", task.ID)
	return fmt.Sprintf("Task created: %s at %s.", task.Description, formatDue(*task.Due)), nil
}

// applyBatch runs the intents in order, accumulating a summary reply.
// A failed intent does not stop the rest of the batch. A vague create
// defers its clarification until every other intent has been applied,
// so "add X later today and done 2" completes task 2 before asking
// about X.
func (a *Assistant) applyBatch(
	ctx context.Context,
	log *slog.Logger,
	userID string,
	batch domain.IntentBatch,
	now time.Time,
) (string, error) {
	var summary summaryBuilder
	var vague *domain.Intent

	for _, in := range batch {
		switch in.Kind {
		case domain.IntentCreate:
			if in.Vague && in.Due == nil {
				// One session per user; a second vague create in the
				// same message cannot be held too.
				if vague != nil {
					log.Warn("dropping extra vague create in batch", "description", in.Description)
					summary.Note(fmt.Sprintf("I can only sort out one time at once; tell me about %q again after.", in.Description))
					continue
				}
				pending := in
				vague = &pending
				continue
			}
			a.applyCreate(ctx, log, userID, in, &summary)

		case domain.IntentComplete:
			a.applyComplete(ctx, log, userID, in, &summary)

		case domain.IntentUpdate:
			a.applyUpdate(ctx, log, userID, in, &summary)
		}
	}

	if vague != nil {
		session := a.clarify.Begin(userID, *vague, now)
		prompt := clarificationPrompt(session)
		if head := summary.String(); head != "" {
			return head + "\n\n" + prompt, nil
		}
		return prompt, nil
	}

	open, err := a.tasks.ListOpen(ctx, userID)
	if err != nil {
		log.Warn("failed to reload open tasks for reply", "error", err)
		return summary.String(), nil
	}

	return summary.WithList(open), nil
}

func (a *Assistant) applyCreate(ctx context.Context, log *slog.Logger, userID string, in domain.Intent, summary *summaryBuilder) {
	category := domain.CategoryForDescription(in.Description)
	priority := domain.PriorityForCategory(category, in.Priority)

	task, err := a.tasks.Create(ctx, userID, in.Description, in.Due, priority, category)
	if err != nil {
		log.Error("failed to create task", "error", err)
		summary.Failed(replyStoreDown)
		return
	}
	summary.Created(task)
}

func (a *Assistant) applyComplete(ctx context.Context, log *slog.Logger, userID string, in domain.Intent, summary *summaryBuilder) {
	task, err := a.tasks.Complete(ctx, userID, in.TaskID)
	switch {
	case err == nil:
		summary.Completed(task)
	case errors.Is(err, domain.ErrInvalidTransition) && task != nil:
		summary.Note(fmt.Sprintf("%q was already done.", task.Description))
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotOwned):
		log.Warn("completion referenced unknown task", "task_id", in.TaskID, "error", err)
		summary.Failed(replyNoSuchTask)
	default:
		log.Error("failed to complete task", "task_id", in.TaskID, "error", err)
		summary.Failed(replyStoreDown)
	}
}

func (a *Assistant) applyUpdate(ctx context.Context, log *slog.Logger, userID string, in domain.Intent, summary *summaryBuilder) {
	task, err := a.tasks.Update(ctx, userID, in.TaskID, in.Update)
	switch {
	case err == nil:
		summary.Updated(task)
	case errors.Is(err, domain.ErrInvalidTransition) && task != nil:
		summary.Note(fmt.Sprintf("%q is no longer open, so I left it as is.", task.Description))
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotOwned):
		log.Warn("update referenced unknown task", "task_id", in.TaskID, "error", err)
		summary.Failed(replyNoSuchTask)
	default:
		log.Error("failed to update task", "task_id", in.TaskID, "error", err)
		summary.Failed(replyStoreDown)
	}
}
