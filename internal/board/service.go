// Package board provides read-only views over the approval stores: a user's
// pending-task inbox, their reference notifications, and document detail.
package board

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"groupware/approval-portal/approval-portal-backend/internal/approval"
)

// Service answers board queries. It never writes.
type Service struct {
	content approval.ContentStore
	meta    approval.MetadataStore
	tasks   approval.TaskQueue
	refs    approval.ReferenceLog
	logger  *zap.Logger
}

// NewService creates a board service over the approval stores.
func NewService(content approval.ContentStore, meta approval.MetadataStore, tasks approval.TaskQueue, refs approval.ReferenceLog, logger *zap.Logger) *Service {
	return &Service{content: content, meta: meta, tasks: tasks, refs: refs, logger: logger}
}

// Inbox lists the user's live task entries, newest first.
func (s *Service) Inbox(ctx context.Context, userID uuid.UUID) ([]approval.TaskEntry, error) {
	return s.tasks.ListByAssignee(ctx, userID)
}

// References lists the user's terminal notifications, newest first.
func (s *Service) References(ctx context.Context, userID uuid.UUID) ([]approval.ReferenceEntry, error) {
	return s.refs.ListByUser(ctx, userID)
}

// DocumentDetail is a document body together with its summary row. Summary is
// nil for drafts.
type DocumentDetail struct {
	Document *approval.Document        `json:"document"`
	Summary  *approval.DocumentSummary `json:"summary,omitempty"`
}

// Detail loads a document with its status for display.
func (s *Service) Detail(ctx context.Context, documentID string) (*DocumentDetail, error) {
	doc, err := s.content.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, approval.ErrNotFound
	}

	summary, err := s.meta.GetSummary(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: doc, Summary: summary}, nil
}
