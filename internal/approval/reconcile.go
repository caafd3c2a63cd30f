package approval

import (
	"context"

	"go.uber.org/zap"

	"groupware/approval-portal/approval-portal-backend/pkg/workflows"
)

// Reconciler audits cross-store consistency for in-flight documents. The four
// stores are written sequentially without a shared transaction, so a crash
// mid-transition can leave them disagreeing; the sweep makes that visible to
// operators. It repairs nothing.
type Reconciler struct {
	content ContentStore
	meta    MetadataStore
	tasks   TaskQueue
	logger  *zap.Logger
}

// NewReconciler creates a reconciliation sweep over the stores.
func NewReconciler(content ContentStore, meta MetadataStore, tasks TaskQueue, logger *zap.Logger) *Reconciler {
	return &Reconciler{content: content, meta: meta, tasks: tasks, logger: logger}
}

// Run checks every non-terminal document and returns the number of findings.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	summaries, err := r.meta.ListNonTerminal(ctx)
	if err != nil {
		return 0, storeErr("metadata", "list non-terminal", err)
	}

	findings := 0
	for _, summary := range summaries {
		n, err := r.check(ctx, summary)
		if err != nil {
			return findings, err
		}
		findings += n
	}

	if findings > 0 {
		r.logger.Warn("reconciliation sweep found divergent documents",
			zap.Int("findings", findings),
			zap.Int("checked", len(summaries)))
	} else {
		r.logger.Debug("reconciliation sweep clean", zap.Int("checked", len(summaries)))
	}
	return findings, nil
}

func (r *Reconciler) check(ctx context.Context, summary DocumentSummary) (int, error) {
	doc, err := r.content.GetDocument(ctx, summary.ID)
	if err != nil {
		return 0, storeErr("content", "get document", err)
	}
	if doc == nil {
		r.logger.Warn("summary without document body",
			zap.String("document_id", summary.ID),
			zap.String("state", string(summary.State)))
		return 1, nil
	}

	findings := 0
	if len(doc.Checklist) > len(doc.ApproverIDs) {
		r.logger.Warn("checklist longer than approver chain",
			zap.String("document_id", summary.ID),
			zap.Int("checklist", len(doc.Checklist)),
			zap.Int("approvers", len(doc.ApproverIDs)))
		findings++
	}

	want := workflows.PendingState(len(doc.Checklist))
	if summary.State != want {
		r.logger.Warn("summary state disagrees with checklist",
			zap.String("document_id", summary.ID),
			zap.String("state", string(summary.State)),
			zap.String("derived", string(want)))
		findings++
	}

	entries, err := r.tasks.ListByDocument(ctx, summary.ID)
	if err != nil {
		return findings, storeErr("task", "list entries", err)
	}
	if !taskSetConsistent(doc, entries) {
		r.logger.Warn("task entries disagree with document",
			zap.String("document_id", summary.ID),
			zap.Int("entries", len(entries)))
		findings++
	}
	return findings, nil
}

// taskSetConsistent verifies the two-entry invariant: one entry for the
// writer and one for the current approver, both in the document's pending
// state.
func taskSetConsistent(doc *Document, entries []TaskEntry) bool {
	if len(entries) != 2 {
		return false
	}
	approver, ok := doc.CurrentApprover()
	if !ok {
		return false
	}

	state := workflows.PendingState(len(doc.Checklist))
	var haveWriter, haveApprover bool
	for _, entry := range entries {
		if entry.State != state {
			return false
		}
		switch entry.AssigneeID {
		case doc.WriterID:
			haveWriter = true
		case approver:
			haveApprover = true
		}
	}
	if approver == doc.WriterID {
		haveApprover = haveWriter
	}
	return haveWriter && haveApprover
}
