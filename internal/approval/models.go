package approval

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"groupware/approval-portal/approval-portal-backend/internal/templates"
	"groupware/approval-portal/approval-portal-backend/pkg/workflows"
)

// Document is the full body of an approval document. The content store
// assigns its id on creation; everything except the checklist is immutable
// after submission.
type Document struct {
	ID           string          `json:"id"`
	Kind         templates.Kind  `json:"kind"`
	WriterID     uuid.UUID       `json:"writer_id"`
	ApproverIDs  []uuid.UUID     `json:"approver_ids"`
	Checklist    []bool          `json:"checklist"`
	ReferenceIDs []uuid.UUID     `json:"reference_ids"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CurrentApprover returns the approver whose decision is pending. ok is false
// once every approver has decided.
func (d *Document) CurrentApprover() (uuid.UUID, bool) {
	idx := len(d.Checklist)
	if idx >= len(d.ApproverIDs) {
		return uuid.Nil, false
	}
	return d.ApproverIDs[idx], true
}

// DocumentSummary is the lightweight status row kept beside the document body
// so state can be queried without loading the full content. Version increases
// on every state write.
type DocumentSummary struct {
	ID        string             `json:"id" db:"id"`
	State     workflows.DocState `json:"state" db:"state"`
	Version   int64              `json:"version" db:"version"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// TaskEntry marks that a user has an actionable item on a document. While a
// document is in flight there are exactly two live entries: one for the
// writer and one for the approver whose turn it is.
type TaskEntry struct {
	ID         uuid.UUID          `json:"id" db:"id"`
	DocumentID string             `json:"document_id" db:"document_id"`
	AssigneeID uuid.UUID          `json:"assignee_id" db:"assignee_id"`
	State      workflows.DocState `json:"state" db:"state"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
}

// ReferenceEntry is an append-only terminal notification record.
type ReferenceEntry struct {
	ID         uuid.UUID          `json:"id" db:"id"`
	DocumentID string             `json:"document_id" db:"document_id"`
	UserID     uuid.UUID          `json:"user_id" db:"user_id"`
	State      workflows.DocState `json:"state" db:"state"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
}
