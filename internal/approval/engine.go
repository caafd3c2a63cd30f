package approval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"groupware/approval-portal/approval-portal-backend/internal/templates"
	"groupware/approval-portal/approval-portal-backend/pkg/workflows"
)

// Engine drives every workflow transition. It is the single writer of
// approval logic: the four stores never talk to each other, and all writes
// for one transition happen in a fixed order (content, metadata, task queue,
// reference log) under a per-document lock.
type Engine struct {
	content ContentStore
	meta    MetadataStore
	tasks   TaskQueue
	refs    ReferenceLog
	locks   *lockTable
	logger  *zap.Logger
}

// NewEngine creates a workflow engine over the four stores.
func NewEngine(content ContentStore, meta MetadataStore, tasks TaskQueue, refs ReferenceLog, logger *zap.Logger) *Engine {
	return &Engine{
		content: content,
		meta:    meta,
		tasks:   tasks,
		refs:    refs,
		locks:   newLockTable(),
		logger:  logger,
	}
}

// Submit creates a document with an empty checklist and puts it in front of
// the first approver. It returns the id assigned by the content store.
func (e *Engine) Submit(ctx context.Context, writerID uuid.UUID, kind templates.Kind, approverIDs, referenceIDs []uuid.UUID, payload json.RawMessage) (string, error) {
	if len(approverIDs) == 0 {
		return "", ErrNoApprovers
	}

	now := time.Now()
	doc := &Document{
		Kind:         kind,
		WriterID:     writerID,
		ApproverIDs:  approverIDs,
		Checklist:    []bool{},
		ReferenceIDs: referenceIDs,
		Payload:      payload,
		CreatedAt:    now,
	}

	id, err := e.content.CreateDocument(ctx, doc)
	if err != nil {
		return "", storeErr("content", "create document", err)
	}

	state := workflows.PendingState(0)
	summary := &DocumentSummary{ID: id, State: state, CreatedAt: now}
	if err := e.meta.CreateSummary(ctx, summary); err != nil {
		return "", storeErr("metadata", "create summary", err)
	}

	if err := e.tasks.CreateEntries(ctx, taskPair(id, writerID, approverIDs[0], state)); err != nil {
		return "", storeErr("task", "create entries", err)
	}

	e.logger.Info("document submitted",
		zap.String("document_id", id),
		zap.String("kind", string(kind)),
		zap.Int("approvers", len(approverIDs)),
		zap.Int("references", len(referenceIDs)))
	return id, nil
}

// Approve records one approver decision and advances the workflow. The actor
// must be the approver whose turn it currently is; any failed check leaves
// every store untouched.
func (e *Engine) Approve(ctx context.Context, actorID uuid.UUID, documentID string, decision bool) error {
	release := e.locks.Acquire(documentID)
	defer release()

	summary, err := e.meta.GetSummary(ctx, documentID)
	if err != nil {
		return storeErr("metadata", "get summary", err)
	}
	if summary == nil {
		// Drafts have no summary row and cannot be approved.
		return ErrNotFound
	}
	if summary.State.Terminal() {
		return ErrInvalidState
	}

	doc, err := e.content.GetDocument(ctx, documentID)
	if err != nil {
		return storeErr("content", "get document", err)
	}
	if doc == nil {
		return ErrNotFound
	}

	idx := len(doc.Checklist)
	if idx >= len(doc.ApproverIDs) {
		return ErrInvalidState
	}
	if actorID != doc.ApproverIDs[idx] {
		return ErrUnauthorized
	}

	if !decision {
		return e.deny(ctx, doc, summary)
	}
	return e.advance(ctx, doc, summary)
}

// deny terminates the workflow. Only the writer is notified; remaining
// approvers and reference users are not.
func (e *Engine) deny(ctx context.Context, doc *Document, summary *DocumentSummary) error {
	if !workflows.CanTransition(summary.State, workflows.StateDeny) {
		return ErrInvalidState
	}

	if err := e.content.AppendDecision(ctx, doc.ID, false); err != nil {
		return storeErr("content", "append decision", err)
	}
	if err := e.meta.UpdateState(ctx, doc.ID, workflows.StateDeny); err != nil {
		return storeErr("metadata", "update state", err)
	}
	if err := e.tasks.DeleteByDocument(ctx, doc.ID); err != nil {
		return storeErr("task", "delete entries", err)
	}
	entry := ReferenceEntry{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		UserID:     doc.WriterID,
		State:      workflows.StateDeny,
		CreatedAt:  time.Now(),
	}
	if err := e.refs.AppendEntries(ctx, []ReferenceEntry{entry}); err != nil {
		return storeErr("reference", "append entries", err)
	}

	e.logger.Info("document denied",
		zap.String("document_id", doc.ID),
		zap.Int("decided_at_index", len(doc.Checklist)))
	return nil
}

// advance records an approval and either completes the document or hands it
// to the next approver.
func (e *Engine) advance(ctx context.Context, doc *Document, summary *DocumentSummary) error {
	decided := len(doc.Checklist) + 1
	final := decided == len(doc.ApproverIDs)

	next := workflows.StateComplete
	if !final {
		next = workflows.PendingState(decided)
	}
	if !workflows.CanTransition(summary.State, next) {
		return ErrInvalidState
	}

	if err := e.content.AppendDecision(ctx, doc.ID, true); err != nil {
		return storeErr("content", "append decision", err)
	}
	if err := e.meta.UpdateState(ctx, doc.ID, next); err != nil {
		return storeErr("metadata", "update state", err)
	}
	if err := e.tasks.DeleteByDocument(ctx, doc.ID); err != nil {
		return storeErr("task", "delete entries", err)
	}

	if final {
		now := time.Now()
		entries := make([]ReferenceEntry, 0, len(doc.ReferenceIDs)+1)
		for _, refID := range doc.ReferenceIDs {
			entries = append(entries, ReferenceEntry{
				ID:         uuid.New(),
				DocumentID: doc.ID,
				UserID:     refID,
				State:      workflows.StateComplete,
				CreatedAt:  now,
			})
		}
		entries = append(entries, ReferenceEntry{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			UserID:     doc.WriterID,
			State:      workflows.StateComplete,
			CreatedAt:  now,
		})
		if err := e.refs.AppendEntries(ctx, entries); err != nil {
			return storeErr("reference", "append entries", err)
		}

		e.logger.Info("document completed",
			zap.String("document_id", doc.ID),
			zap.Int("notified", len(entries)))
		return nil
	}

	if err := e.tasks.CreateEntries(ctx, taskPair(doc.ID, doc.WriterID, doc.ApproverIDs[decided], next)); err != nil {
		return storeErr("task", "create entries", err)
	}

	e.logger.Info("document advanced",
		zap.String("document_id", doc.ID),
		zap.String("state", string(next)))
	return nil
}

// SaveDraft persists a draft body with a single TEMPORARY task entry for the
// writer. Drafts have no summary row; they are not yet in flight.
func (e *Engine) SaveDraft(ctx context.Context, writerID uuid.UUID, kind templates.Kind, payload json.RawMessage) (string, error) {
	doc := &Document{
		Kind:      kind,
		WriterID:  writerID,
		Checklist: []bool{},
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	id, err := e.content.CreateDocument(ctx, doc)
	if err != nil {
		return "", storeErr("content", "create document", err)
	}

	entry := TaskEntry{
		ID:         uuid.New(),
		DocumentID: id,
		AssigneeID: writerID,
		State:      workflows.StateTemporary,
		CreatedAt:  time.Now(),
	}
	if err := e.tasks.CreateEntries(ctx, []TaskEntry{entry}); err != nil {
		return "", storeErr("task", "create entries", err)
	}

	e.logger.Info("draft saved", zap.String("document_id", id))
	return id, nil
}

// TakeDraft returns the writer's saved draft and removes it from both the
// content store and the task queue (fetch-then-delete).
func (e *Engine) TakeDraft(ctx context.Context, writerID uuid.UUID) (*Document, error) {
	task, err := e.tasks.FindDraft(ctx, writerID)
	if err != nil {
		return nil, storeErr("task", "find draft", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}

	release := e.locks.Acquire(task.DocumentID)
	defer release()

	doc, err := e.content.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return nil, storeErr("content", "get document", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	if err := e.content.DeleteDocument(ctx, task.DocumentID); err != nil {
		return nil, storeErr("content", "delete document", err)
	}
	if err := e.tasks.DeleteByDocument(ctx, task.DocumentID); err != nil {
		return nil, storeErr("task", "delete entries", err)
	}

	e.logger.Info("draft taken", zap.String("document_id", task.DocumentID))
	return doc, nil
}

func taskPair(documentID string, writerID, approverID uuid.UUID, state workflows.DocState) []TaskEntry {
	now := time.Now()
	return []TaskEntry{
		{ID: uuid.New(), DocumentID: documentID, AssigneeID: writerID, State: state, CreatedAt: now},
		{ID: uuid.New(), DocumentID: documentID, AssigneeID: approverID, State: state, CreatedAt: now},
	}
}
