package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"groupware/approval-portal/approval-portal-backend/internal/templates"
	"groupware/approval-portal/approval-portal-backend/pkg/workflows"
)

var errBackend = errors.New("backend unavailable")

// fakeStores is a thread-safe in-memory implementation of all four store
// contracts. It records every write in ops so tests can assert ordering and
// the absence of mutations.
type fakeStores struct {
	mu        sync.Mutex
	seq       int
	docs      map[string]*Document
	summaries map[string]*DocumentSummary
	tasks     []TaskEntry
	refs      []ReferenceEntry
	ops       []string
	failOn    string
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		docs:      make(map[string]*Document),
		summaries: make(map[string]*DocumentSummary),
	}
}

func (f *fakeStores) fail(op string) error {
	f.ops = append(f.ops, op)
	if f.failOn == op {
		return errBackend
	}
	return nil
}

func (f *fakeStores) CreateDocument(ctx context.Context, doc *Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("content.create"); err != nil {
		return "", err
	}
	f.seq++
	id := fmt.Sprintf("doc-%d", f.seq)
	stored := *doc
	stored.ID = id
	f.docs[id] = &stored
	doc.ID = id
	return id, nil
}

func (f *fakeStores) GetDocument(ctx context.Context, id string) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	copied.Checklist = append([]bool{}, doc.Checklist...)
	return &copied, nil
}

func (f *fakeStores) AppendDecision(ctx context.Context, id string, decision bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("content.append"); err != nil {
		return err
	}
	doc, ok := f.docs[id]
	if !ok {
		return errors.New("no such document")
	}
	doc.Checklist = append(doc.Checklist, decision)
	return nil
}

func (f *fakeStores) DeleteDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("content.delete"); err != nil {
		return err
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeStores) CreateSummary(ctx context.Context, summary *DocumentSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("meta.create"); err != nil {
		return err
	}
	stored := *summary
	if stored.Version == 0 {
		stored.Version = 1
	}
	f.summaries[summary.ID] = &stored
	return nil
}

func (f *fakeStores) GetSummary(ctx context.Context, id string) (*DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary, ok := f.summaries[id]
	if !ok {
		return nil, nil
	}
	copied := *summary
	return &copied, nil
}

func (f *fakeStores) UpdateState(ctx context.Context, id string, state workflows.DocState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("meta.update"); err != nil {
		return err
	}
	summary, ok := f.summaries[id]
	if !ok {
		return errors.New("no such summary")
	}
	summary.State = state
	summary.Version++
	return nil
}

func (f *fakeStores) ListNonTerminal(ctx context.Context) ([]DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []DocumentSummary
	for _, summary := range f.summaries {
		if !summary.State.Terminal() {
			out = append(out, *summary)
		}
	}
	return out, nil
}

func (f *fakeStores) CreateEntries(ctx context.Context, entries []TaskEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("task.create"); err != nil {
		return err
	}
	f.tasks = append(f.tasks, entries...)
	return nil
}

func (f *fakeStores) DeleteByDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("task.delete"); err != nil {
		return err
	}
	kept := f.tasks[:0]
	for _, entry := range f.tasks {
		if entry.DocumentID != documentID {
			kept = append(kept, entry)
		}
	}
	f.tasks = kept
	return nil
}

func (f *fakeStores) ListByDocument(ctx context.Context, documentID string) ([]TaskEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []TaskEntry
	for _, entry := range f.tasks {
		if entry.DocumentID == documentID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeStores) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]TaskEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []TaskEntry
	for _, entry := range f.tasks {
		if entry.AssigneeID == assigneeID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeStores) FindDraft(ctx context.Context, writerID uuid.UUID) (*TaskEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.tasks) - 1; i >= 0; i-- {
		entry := f.tasks[i]
		if entry.AssigneeID == writerID && entry.State == workflows.StateTemporary {
			return &entry, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) AppendEntries(ctx context.Context, entries []ReferenceEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ref.append"); err != nil {
		return err
	}
	f.refs = append(f.refs, entries...)
	return nil
}

func (f *fakeStores) ListByUser(ctx context.Context, userID uuid.UUID) ([]ReferenceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ReferenceEntry
	for _, entry := range f.refs {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeStores) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.ops...)
}

func (f *fakeStores) tasksFor(documentID string) []TaskEntry {
	entries, _ := f.ListByDocument(context.Background(), documentID)
	return entries
}

func newTestEngine(stores *fakeStores) *Engine {
	return NewEngine(stores, stores, stores, stores, zap.NewNop())
}

func payload() json.RawMessage {
	return json.RawMessage(`{"title":"Annual leave","start_date":"2026-09-01","end_date":"2026-09-05","reason":"family"}`)
}

func assigneeSet(entries []TaskEntry) map[uuid.UUID]workflows.DocState {
	out := make(map[uuid.UUID]workflows.DocState)
	for _, entry := range entries {
		out[entry.AssigneeID] = entry.State
	}
	return out
}

func TestSubmitCreatesSummaryAndTaskPair(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approverA := uuid.New()
	approverB := uuid.New()

	id, err := engine.Submit(ctx, writer, templates.KindVacation, []uuid.UUID{approverA, approverB}, nil, payload())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc := stores.docs[id]
	require.NotNil(t, doc)
	assert.Empty(t, doc.Checklist)
	assert.Equal(t, writer, doc.WriterID)

	summary := stores.summaries[id]
	require.NotNil(t, summary)
	assert.Equal(t, workflows.PendingState(0), summary.State)

	tasks := stores.tasksFor(id)
	require.Len(t, tasks, 2)
	set := assigneeSet(tasks)
	assert.Equal(t, workflows.PendingState(0), set[writer])
	assert.Equal(t, workflows.PendingState(0), set[approverA])
}

func TestSubmitRequiresApprovers(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)

	_, err := engine.Submit(context.Background(), uuid.New(), templates.KindReport, nil, nil, payload())
	assert.ErrorIs(t, err, ErrNoApprovers)
	assert.Empty(t, stores.opLog())
}

// Scenario A: two approvers, one reference user, full approval chain.
func TestApprovalChainCompletes(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approverA := uuid.New()
	approverB := uuid.New()
	refC := uuid.New()

	id, err := engine.Submit(ctx, writer, templates.KindTrip, []uuid.UUID{approverA, approverB}, []uuid.UUID{refC}, payload())
	require.NoError(t, err)

	require.NoError(t, engine.Approve(ctx, approverA, id, true))
	assert.Equal(t, workflows.PendingState(1), stores.summaries[id].State)
	set := assigneeSet(stores.tasksFor(id))
	require.Len(t, set, 2)
	assert.Equal(t, workflows.PendingState(1), set[writer])
	assert.Equal(t, workflows.PendingState(1), set[approverB])

	require.NoError(t, engine.Approve(ctx, approverB, id, true))
	assert.Equal(t, workflows.StateComplete, stores.summaries[id].State)
	assert.Empty(t, stores.tasksFor(id))
	assert.Equal(t, []bool{true, true}, stores.docs[id].Checklist)

	require.Len(t, stores.refs, 2)
	notified := make(map[uuid.UUID]workflows.DocState)
	for _, entry := range stores.refs {
		notified[entry.UserID] = entry.State
	}
	assert.Equal(t, workflows.StateComplete, notified[refC])
	assert.Equal(t, workflows.StateComplete, notified[writer])
}

// Scenario B: a single denial terminates silently for everyone but the writer.
func TestDenyNotifiesWriterOnly(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approverA := uuid.New()
	approverB := uuid.New()
	refC := uuid.New()

	id, err := engine.Submit(ctx, writer, templates.KindExpense, []uuid.UUID{approverA, approverB}, []uuid.UUID{refC}, payload())
	require.NoError(t, err)

	require.NoError(t, engine.Approve(ctx, approverA, id, false))

	assert.Equal(t, workflows.StateDeny, stores.summaries[id].State)
	assert.Empty(t, stores.tasksFor(id))
	assert.Equal(t, []bool{false}, stores.docs[id].Checklist)

	require.Len(t, stores.refs, 1)
	assert.Equal(t, writer, stores.refs[0].UserID)
	assert.Equal(t, workflows.StateDeny, stores.refs[0].State)
}

// Scenario C: an approver acting out of turn is rejected with no mutation.
func TestOutOfTurnApproverUnauthorized(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approverA := uuid.New()
	approverB := uuid.New()

	id, err := engine.Submit(ctx, writer, templates.KindVacation, []uuid.UUID{approverA, approverB}, nil, payload())
	require.NoError(t, err)
	opsBefore := stores.opLog()

	err = engine.Approve(ctx, approverB, id, true)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, opsBefore, stores.opLog())
	assert.Empty(t, stores.docs[id].Checklist)
	assert.Equal(t, workflows.PendingState(0), stores.summaries[id].State)
	assert.Len(t, stores.tasksFor(id), 2)
}

// Scenario D: approving a terminal document fails with InvalidState.
func TestApproveCompletedDocumentInvalidState(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approver := uuid.New()

	id, err := engine.Submit(ctx, writer, templates.KindReport, []uuid.UUID{approver}, nil, payload())
	require.NoError(t, err)
	require.NoError(t, engine.Approve(ctx, approver, id, true))

	err = engine.Approve(ctx, approver, id, true)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, []bool{true}, stores.docs[id].Checklist)
}

func TestApproveUnknownDocumentNotFound(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)

	err := engine.Approve(context.Background(), uuid.New(), "doc-999", true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, stores.opLog())
}

func TestApproveDraftNotFound(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	id, err := engine.SaveDraft(ctx, writer, templates.KindReport, payload())
	require.NoError(t, err)

	// Drafts have no summary row, so they are invisible to Approve.
	err = engine.Approve(ctx, writer, id, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSingleApproverCompletesOnFirstApproval(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approver := uuid.New()

	id, err := engine.Submit(ctx, writer, templates.KindVacation, []uuid.UUID{approver}, nil, payload())
	require.NoError(t, err)

	require.NoError(t, engine.Approve(ctx, approver, id, true))
	assert.Equal(t, workflows.StateComplete, stores.summaries[id].State)
	assert.Empty(t, stores.tasksFor(id))
	require.Len(t, stores.refs, 1)
	assert.Equal(t, writer, stores.refs[0].UserID)
}

func TestLongChainAdvancesPastThirdApprover(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	chain := make([]uuid.UUID, 5)
	for i := range chain {
		chain[i] = uuid.New()
	}

	id, err := engine.Submit(ctx, writer, templates.KindReport, chain, nil, payload())
	require.NoError(t, err)

	for i, approver := range chain {
		require.NoError(t, engine.Approve(ctx, approver, id, true), "approver %d", i)
		if i < len(chain)-1 {
			assert.Equal(t, workflows.PendingState(i+1), stores.summaries[id].State)
		}
	}
	assert.Equal(t, workflows.StateComplete, stores.summaries[id].State)
	assert.Equal(t, []bool{true, true, true, true, true}, stores.docs[id].Checklist)
}

func TestApprovalWriteOrder(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approverA := uuid.New()
	approverB := uuid.New()

	id, err := engine.Submit(ctx, writer, templates.KindTrip, []uuid.UUID{approverA, approverB}, nil, payload())
	require.NoError(t, err)

	before := len(stores.opLog())
	require.NoError(t, engine.Approve(ctx, approverA, id, true))
	assert.Equal(t,
		[]string{"content.append", "meta.update", "task.delete", "task.create"},
		stores.opLog()[before:])

	before = len(stores.opLog())
	require.NoError(t, engine.Approve(ctx, approverB, id, true))
	assert.Equal(t,
		[]string{"content.append", "meta.update", "task.delete", "ref.append"},
		stores.opLog()[before:])
}

func TestStoreFailureSurfacesAsStoreError(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approver := uuid.New()
	id, err := engine.Submit(ctx, writer, templates.KindVacation, []uuid.UUID{approver}, nil, payload())
	require.NoError(t, err)

	stores.failOn = "meta.update"
	err = engine.Approve(ctx, approver, id, true)
	require.Error(t, err)

	var storeFailure *StoreError
	require.ErrorAs(t, err, &storeFailure)
	assert.Equal(t, "metadata", storeFailure.Store)
	assert.ErrorIs(t, err, errBackend)
}

func TestSaveDraftCreatesTemporaryTask(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	id, err := engine.SaveDraft(ctx, writer, templates.KindExpense, payload())
	require.NoError(t, err)

	assert.Nil(t, stores.summaries[id])
	tasks := stores.tasksFor(id)
	require.Len(t, tasks, 1)
	assert.Equal(t, writer, tasks[0].AssigneeID)
	assert.Equal(t, workflows.StateTemporary, tasks[0].State)
}

func TestTakeDraftFetchesThenDeletes(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	id, err := engine.SaveDraft(ctx, writer, templates.KindReport, payload())
	require.NoError(t, err)

	doc, err := engine.TakeDraft(ctx, writer)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, templates.KindReport, doc.Kind)

	assert.Nil(t, stores.docs[id])
	assert.Empty(t, stores.tasksFor(id))

	_, err = engine.TakeDraft(ctx, writer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentApprovalsSerialize(t *testing.T) {
	stores := newFakeStores()
	engine := newTestEngine(stores)
	ctx := context.Background()

	writer := uuid.New()
	approver := uuid.New()
	id, err := engine.Submit(ctx, writer, templates.KindVacation, []uuid.UUID{approver}, nil, payload())
	require.NoError(t, err)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- engine.Approve(ctx, approver, id, true)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidState)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, []bool{true}, stores.docs[id].Checklist)
}
