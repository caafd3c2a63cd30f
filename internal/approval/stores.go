package approval

import (
	"context"

	"github.com/google/uuid"

	"groupware/approval-portal/approval-portal-backend/pkg/workflows"
)

// ContentStore holds document bodies. CreateDocument assigns and returns the
// document id. Get returns (nil, nil) when the id is unknown.
type ContentStore interface {
	CreateDocument(ctx context.Context, doc *Document) (string, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	AppendDecision(ctx context.Context, id string, decision bool) error
	DeleteDocument(ctx context.Context, id string) error
}

// MetadataStore holds one summary row per submitted document. GetSummary
// returns (nil, nil) when no row exists (unknown id or unsubmitted draft).
type MetadataStore interface {
	CreateSummary(ctx context.Context, summary *DocumentSummary) error
	GetSummary(ctx context.Context, id string) (*DocumentSummary, error)
	UpdateState(ctx context.Context, id string, state workflows.DocState) error
	ListNonTerminal(ctx context.Context) ([]DocumentSummary, error)
}

// TaskQueue holds pending-action entries. FindDraft returns (nil, nil) when
// the user has no draft.
type TaskQueue interface {
	CreateEntries(ctx context.Context, entries []TaskEntry) error
	DeleteByDocument(ctx context.Context, documentID string) error
	ListByDocument(ctx context.Context, documentID string) ([]TaskEntry, error)
	ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]TaskEntry, error)
	FindDraft(ctx context.Context, writerID uuid.UUID) (*TaskEntry, error)
}

// ReferenceLog holds append-only terminal notifications.
type ReferenceLog interface {
	AppendEntries(ctx context.Context, entries []ReferenceEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]ReferenceEntry, error)
}
