package approval

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"groupware/approval-portal/approval-portal-backend/pkg/workflows"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_summaries (
	id          TEXT PRIMARY KEY,
	state       TEXT NOT NULL,
	version     BIGINT NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS task_entries (
	id           UUID PRIMARY KEY,
	document_id  TEXT NOT NULL,
	assignee_id  UUID NOT NULL,
	state        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_task_entries_document ON task_entries (document_id);
CREATE INDEX IF NOT EXISTS idx_task_entries_assignee ON task_entries (assignee_id);

CREATE TABLE IF NOT EXISTS reference_entries (
	id           UUID PRIMARY KEY,
	document_id  TEXT NOT NULL,
	user_id      UUID NOT NULL,
	state        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_reference_entries_user ON reference_entries (user_id);
`

// Migrate creates the approval tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

type metadataRepository struct {
	db *sqlx.DB
}

// NewMetadataStore returns a Postgres-backed MetadataStore.
func NewMetadataStore(db *sqlx.DB) MetadataStore {
	return &metadataRepository{db: db}
}

func (r *metadataRepository) CreateSummary(ctx context.Context, summary *DocumentSummary) error {
	if summary.Version == 0 {
		summary.Version = 1
	}
	query := `
		INSERT INTO document_summaries (id, state, version, created_at)
		VALUES (:id, :state, :version, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, summary)
	return err
}

func (r *metadataRepository) GetSummary(ctx context.Context, id string) (*DocumentSummary, error) {
	var summary DocumentSummary
	err := r.db.GetContext(ctx, &summary, "SELECT * FROM document_summaries WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *metadataRepository) UpdateState(ctx context.Context, id string, state workflows.DocState) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE document_summaries SET state = $1, version = version + 1 WHERE id = $2", state, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *metadataRepository) ListNonTerminal(ctx context.Context) ([]DocumentSummary, error) {
	var summaries []DocumentSummary
	err := r.db.SelectContext(ctx, &summaries,
		"SELECT * FROM document_summaries WHERE state NOT IN ($1, $2)",
		workflows.StateComplete, workflows.StateDeny)
	return summaries, err
}

type taskRepository struct {
	db *sqlx.DB
}

// NewTaskQueue returns a Postgres-backed TaskQueue.
func NewTaskQueue(db *sqlx.DB) TaskQueue {
	return &taskRepository{db: db}
}

func (r *taskRepository) CreateEntries(ctx context.Context, entries []TaskEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
		INSERT INTO task_entries (id, document_id, assignee_id, state, created_at)
		VALUES (:id, :document_id, :assignee_id, :state, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, entries)
	return err
}

func (r *taskRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM task_entries WHERE document_id = $1", documentID)
	return err
}

func (r *taskRepository) ListByDocument(ctx context.Context, documentID string) ([]TaskEntry, error) {
	var entries []TaskEntry
	err := r.db.SelectContext(ctx, &entries,
		"SELECT * FROM task_entries WHERE document_id = $1 ORDER BY created_at", documentID)
	return entries, err
}

func (r *taskRepository) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]TaskEntry, error) {
	var entries []TaskEntry
	err := r.db.SelectContext(ctx, &entries,
		"SELECT * FROM task_entries WHERE assignee_id = $1 ORDER BY created_at DESC", assigneeID)
	return entries, err
}

func (r *taskRepository) FindDraft(ctx context.Context, writerID uuid.UUID) (*TaskEntry, error) {
	var entry TaskEntry
	err := r.db.GetContext(ctx, &entry,
		"SELECT * FROM task_entries WHERE assignee_id = $1 AND state = $2 ORDER BY created_at DESC LIMIT 1",
		writerID, workflows.StateTemporary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

type referenceRepository struct {
	db *sqlx.DB
}

// NewReferenceLog returns a Postgres-backed ReferenceLog.
func NewReferenceLog(db *sqlx.DB) ReferenceLog {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) AppendEntries(ctx context.Context, entries []ReferenceEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
		INSERT INTO reference_entries (id, document_id, user_id, state, created_at)
		VALUES (:id, :document_id, :user_id, :state, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, entries)
	return err
}

func (r *referenceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]ReferenceEntry, error) {
	var entries []ReferenceEntry
	err := r.db.SelectContext(ctx, &entries,
		"SELECT * FROM reference_entries WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return entries, err
}
