package approvals_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/approvals"
	"github.com/parleyhq/parley/internal/dispatch"
	"github.com/parleyhq/parley/internal/drafts"
	"github.com/parleyhq/parley/internal/messages"
	"github.com/parleyhq/parley/pkg/pagination"
)

// fakeMessageStore backs the ledger's state gate; approvals only read
// messages and request transitions, so writes are recorded for assertion.
type fakeMessageStore struct {
	mu          sync.Mutex
	store       map[uuid.UUID]*messages.Message
	transitions []transitionCall
	retries     []uuid.UUID
}

type transitionCall struct {
	id   uuid.UUID
	from messages.Status
	to   messages.Status
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{store: make(map[uuid.UUID]*messages.Message)}
}

func (f *fakeMessageStore) seed(status messages.Status) *messages.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg := &messages.Message{
		ID:          uuid.New(),
		Platform:    "instagram",
		MessageType: messages.TypeComment,
		SenderID:    "user-9",
		Content:     "does this work on sensitive skin?",
		Status:      status,
		ReceivedAt:  time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.store[msg.ID] = msg
	copied := *msg
	return &copied
}

func (f *fakeMessageStore) Handler() *messages.Handler { return nil }

func (f *fakeMessageStore) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters messages.Filters,
) (*pagination.PageResult[messages.InboxEntry], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMessageStore) Find(ctx context.Context, id uuid.UUID) (*messages.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.store[id]
	if !ok {
		return nil, messages.ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

func (f *fakeMessageStore) Submit(ctx context.Context, cmd messages.SubmitCommand) (*messages.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMessageStore) Transition(ctx context.Context, id uuid.UUID, from, to messages.Status) (*messages.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transitions = append(f.transitions, transitionCall{id, from, to})
	msg, ok := f.store[id]
	if !ok {
		return nil, messages.ErrNotFound
	}
	msg.Status = to
	copied := *msg
	return &copied, nil
}

func (f *fakeMessageStore) ClaimReceived(ctx context.Context, limit int) ([]messages.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMessageStore) ListDueRetries(ctx context.Context, limit int) ([]messages.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMessageStore) MarkDegraded(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeMessageStore) SetRetry(ctx context.Context, id uuid.UUID, from messages.Status, stage string, attempts int, nextAttempt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries = append(f.retries, id)
	return nil
}

type fakeDraftStore struct {
	mu    sync.Mutex
	store []*drafts.Draft
}

func (f *fakeDraftStore) seed(messageID uuid.UUID, text string) *drafts.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := &drafts.Draft{
		ID:         uuid.New(),
		MessageID:  messageID,
		ReplyText:  text,
		Confidence: 0.9,
		Source:     drafts.SourceGenerated,
		CreatedAt:  time.Now(),
	}
	f.store = append(f.store, d)
	return d
}

func (f *fakeDraftStore) operatorDrafts() []drafts.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []drafts.Draft
	for _, d := range f.store {
		if d.Source == drafts.SourceOperator {
			out = append(out, *d)
		}
	}
	return out
}

func (f *fakeDraftStore) Find(ctx context.Context, id uuid.UUID) (*drafts.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.store {
		if d.ID == id {
			copied := *d
			return &copied, nil
		}
	}
	return nil, drafts.ErrNotFound
}

func (f *fakeDraftStore) Active(ctx context.Context, messageID uuid.UUID) (*drafts.Draft, error) {
	return nil, drafts.ErrNoActiveDraft
}

func (f *fakeDraftStore) History(ctx context.Context, messageID uuid.UUID) ([]drafts.Draft, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDraftStore) CreateGenerated(ctx context.Context, messageID uuid.UUID, out drafts.Output, modelName string) (*drafts.Draft, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDraftStore) CreateOperator(ctx context.Context, messageID uuid.UUID, replyText string) (*drafts.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, prev := range f.store {
		if prev.MessageID == messageID && prev.SupersededBy == nil {
			id := uuid.New()
			prev.SupersededBy = &id
		}
	}
	d := &drafts.Draft{
		ID:        uuid.New(),
		MessageID: messageID,
		ReplyText: replyText,
		Source:    drafts.SourceOperator,
		CreatedAt: time.Now(),
	}
	f.store = append(f.store, d)
	copied := *d
	return &copied, nil
}

func (f *fakeDraftStore) PromoteRewrite(ctx context.Context, draftID uuid.UUID, rewritten string) (*drafts.Draft, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDraftStore) Verify(ctx context.Context, draftID uuid.UUID, out drafts.VerificationOutput, modelName string) (*drafts.Verification, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDraftStore) VerificationFor(ctx context.Context, draftID uuid.UUID) (*drafts.Verification, error) {
	return nil, drafts.ErrNotFound
}

type fakeDispatcher struct {
	mu        sync.Mutex
	delivered []dispatch.Reply
	err       error
}

func (f *fakeDispatcher) Deliver(ctx context.Context, reply dispatch.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, reply)
	return nil
}

func (f *fakeDispatcher) replies() []dispatch.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatch.Reply(nil), f.delivered...)
}

type ledgerFixture struct {
	msgs   *fakeMessageStore
	drf    *fakeDraftStore
	dsp    *fakeDispatcher
	ledger approvals.System
}

func newLedgerFixture(db *sql.DB) *ledgerFixture {
	f := &ledgerFixture{
		msgs: newFakeMessageStore(),
		drf:  &fakeDraftStore{},
		dsp:  &fakeDispatcher{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.ledger = approvals.New(db, f.msgs, f.drf, f.dsp, logger)
	return f
}

func strPtr(s string) *string { return &s }

func TestRecordRejectsDecidedMessage(t *testing.T) {
	f := newLedgerFixture(nil)
	msg := f.msgs.seed(messages.StatusResolved)

	_, err := f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionEscalate,
		Reason:     strPtr("second look"),
	})
	if !errors.Is(err, messages.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := approvals.MapHTTPStatus(err); got != http.StatusConflict {
		t.Errorf("http status: got %d, want %d", got, http.StatusConflict)
	}
}

func TestRecordRejectsMessageStillInFlight(t *testing.T) {
	f := newLedgerFixture(nil)
	msg := f.msgs.seed(messages.StatusClassifying)

	_, err := f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionEscalate,
		Reason:     strPtr("too early"),
	})
	if !errors.Is(err, approvals.ErrNotAwaiting) {
		t.Fatalf("expected not-awaiting, got %v", err)
	}
}

func TestRecordValidation(t *testing.T) {
	f := newLedgerFixture(nil)
	msg := f.msgs.seed(messages.StatusAwaitingApproval)

	tests := []struct {
		name string
		cmd  approvals.RecordCommand
		want error
	}{
		{
			name: "edit without replacement text",
			cmd: approvals.RecordCommand{
				MessageID:  msg.ID,
				ApprovedBy: "maya",
				Action:     approvals.ActionEdit,
			},
			want: approvals.ErrEditTextMissing,
		},
		{
			name: "edit with blank replacement text",
			cmd: approvals.RecordCommand{
				MessageID:  msg.ID,
				ApprovedBy: "maya",
				Action:     approvals.ActionEdit,
				EditedText: strPtr("   "),
			},
			want: approvals.ErrEditTextMissing,
		},
		{
			name: "escalate without reason",
			cmd: approvals.RecordCommand{
				MessageID:  msg.ID,
				ApprovedBy: "maya",
				Action:     approvals.ActionEscalate,
			},
			want: approvals.ErrReasonMissing,
		},
		{
			name: "unknown action",
			cmd: approvals.RecordCommand{
				MessageID:  msg.ID,
				ApprovedBy: "maya",
				Action:     approvals.Action("reject"),
			},
			want: approvals.ErrValidation,
		},
		{
			name: "missing approver",
			cmd: approvals.RecordCommand{
				MessageID: msg.ID,
				Action:    approvals.ActionEscalate,
				Reason:    strPtr("who decided?"),
			},
			want: approvals.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Record(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if got := approvals.MapHTTPStatus(err); got != http.StatusBadRequest {
				t.Errorf("http status: got %d, want %d", got, http.StatusBadRequest)
			}
		})
	}
}

func TestRecordRejectsForeignDraft(t *testing.T) {
	f := newLedgerFixture(nil)
	msg := f.msgs.seed(messages.StatusAwaitingApproval)
	other := f.msgs.seed(messages.StatusAwaitingApproval)
	foreign := f.drf.seed(other.ID, "reply for another thread")

	_, err := f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		DraftID:    &foreign.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionApprove,
	})
	if !errors.Is(err, approvals.ErrDraftMismatch) {
		t.Fatalf("expected draft mismatch, got %v", err)
	}
}

func TestRecordApproveRequiresDraft(t *testing.T) {
	f := newLedgerFixture(nil)
	msg := f.msgs.seed(messages.StatusAwaitingApproval)

	_, err := f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionApprove,
	})
	if !errors.Is(err, approvals.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordApproveRejectedOnBlockedMessage(t *testing.T) {
	f := newLedgerFixture(nil)
	msg := f.msgs.seed(messages.StatusBlocked)
	d := f.drf.seed(msg.ID, "draft that tripped the verifier")

	_, err := f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		DraftID:    &d.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionApprove,
	})
	if !errors.Is(err, approvals.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.dsp.replies()) != 0 {
		t.Error("nothing should be dispatched for a blocked message")
	}
}

func approvalRow(msg *messages.Message, action approvals.Action, edited, reason any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "message_id", "draft_id", "approved_by", "action",
		"edited_text", "reason", "decided_at",
	}).AddRow(uuid.NewString(), msg.ID.String(), nil, "maya", string(action), edited, reason, time.Now())
}

func TestRecordEditShipsOperatorDraft(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	defer db.Close()

	f := newLedgerFixture(db)
	msg := f.msgs.seed(messages.StatusAwaitingApproval)
	f.drf.seed(msg.ID, "machine draft under review")
	edited := "Hi! Yes, the formula is fragrance-free and patch-tested."

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO approvals").
		WillReturnRows(approvalRow(msg, approvals.ActionEdit, edited, nil))
	mock.ExpectCommit()

	a, err := f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionEdit,
		EditedText: &edited,
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if a.Action != approvals.ActionEdit {
		t.Errorf("action: got %s, want %s", a.Action, approvals.ActionEdit)
	}

	operator := f.drf.operatorDrafts()
	if len(operator) != 1 {
		t.Fatalf("operator drafts: got %d, want 1", len(operator))
	}
	if operator[0].ReplyText != edited {
		t.Errorf("operator draft text: got %q, want the edit", operator[0].ReplyText)
	}
	if _, err := f.drf.VerificationFor(context.Background(), operator[0].ID); !errors.Is(err, drafts.ErrNotFound) {
		t.Error("operator drafts must not carry a verification")
	}

	replies := f.dsp.replies()
	if len(replies) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(replies))
	}
	if replies[0].Text != edited {
		t.Errorf("dispatched text: got %q, want the edit", replies[0].Text)
	}
	if len(f.msgs.transitions) != 1 || f.msgs.transitions[0].to != messages.StatusSent {
		t.Errorf("expected a single transition to sent, got %+v", f.msgs.transitions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordEscalateClosesWithoutDispatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	defer db.Close()

	f := newLedgerFixture(db)
	msg := f.msgs.seed(messages.StatusBlocked)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO approvals").
		WillReturnRows(approvalRow(msg, approvals.ActionEscalate, nil, "needs legal review"))
	mock.ExpectCommit()

	a, err := f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionEscalate,
		Reason:     strPtr("needs legal review"),
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if a.Reason == nil || *a.Reason != "needs legal review" {
		t.Errorf("reason not preserved: %+v", a.Reason)
	}
	if len(f.dsp.replies()) != 0 {
		t.Error("escalation must not dispatch")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordLosesRaceToCompetingDecision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	defer db.Close()

	f := newLedgerFixture(db)
	msg := f.msgs.seed(messages.StatusAwaitingApproval)
	d := f.drf.seed(msg.ID, "draft two operators raced on")

	// The status-guarded update matches nothing: another decision landed
	// between this operator's read and their write.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = f.ledger.Record(context.Background(), approvals.RecordCommand{
		MessageID:  msg.ID,
		DraftID:    &d.ID,
		ApprovedBy: "maya",
		Action:     approvals.ActionApprove,
	})
	if !errors.Is(err, messages.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := approvals.MapHTTPStatus(err); got != http.StatusConflict {
		t.Errorf("http status: got %d, want %d", got, http.StatusConflict)
	}
	if len(f.dsp.replies()) != 0 {
		t.Error("losing decision must not dispatch")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
