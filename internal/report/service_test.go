package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"CANIS-backend/internal/notification"
	"CANIS-backend/internal/platform/audit"
	"CANIS-backend/internal/platform/auth"
	"CANIS-backend/internal/platform/domainerr"
)

// ===== フェイク =====

type fakeStore struct {
	reports  map[int64]*HandlerReport
	sections map[int64][]Section
	items    map[int64]*ItemContext
	approver map[int64]int64 // project_id -> employee_id
	admins   []int64
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reports:  map[int64]*HandlerReport{},
		sections: map[int64][]Section{},
		items:    map[int64]*ItemContext{},
		approver: map[int64]int64{},
	}
}

func (f *fakeStore) ExecCreateReport(ctx context.Context, r *HandlerReport) error {
	f.nextID++
	r.ReportID = f.nextID
	r.Status = StatusDraft
	f.reports[r.ReportID] = r
	for _, st := range sectionTypes {
		f.sections[r.ReportID] = append(f.sections[r.ReportID], Section{ReportID: r.ReportID, Type: st})
	}
	return nil
}

func (f *fakeStore) GetByULID(ctx context.Context, ulid string) (*HandlerReport, error) {
	for _, r := range f.reports {
		if r.ReportULID == ulid {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListSections(ctx context.Context, reportID int64) ([]Section, error) {
	return f.sections[reportID], nil
}

func (f *fakeStore) UpdateSection(ctx context.Context, reportID int64, sectionType, content string) (int64, error) {
	secs := f.sections[reportID]
	for i := range secs {
		if secs[i].Type == sectionType {
			secs[i].Content = content
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) MarkSubmitted(ctx context.Context, reportID int64, at time.Time) (int64, error) {
	r, ok := f.reports[reportID]
	if !ok || r.Status != StatusDraft {
		return 0, nil
	}
	r.Status = StatusSubmitted
	r.SubmittedAt = &at
	return 1, nil
}

func (f *fakeStore) MarkReviewed(ctx context.Context, reportID int64, status, reviewer string, notes *string) (int64, error) {
	r, ok := f.reports[reportID]
	if !ok || r.Status != StatusSubmitted {
		return 0, nil
	}
	r.Status = status
	r.ReviewedBy = &reviewer
	r.ReviewNotes = notes
	return 1, nil
}

func (f *fakeStore) DeleteDraft(ctx context.Context, reportID int64) (int64, error) {
	r, ok := f.reports[reportID]
	if !ok || r.Status != StatusDraft {
		return 0, nil
	}
	delete(f.reports, reportID)
	delete(f.sections, reportID)
	return 1, nil
}

func (f *fakeStore) List(ctx context.Context, q ListQuery) ([]HandlerReport, error) {
	var out []HandlerReport
	for _, r := range f.reports {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) GetItemContext(ctx context.Context, itemULID string) (*ItemContext, error) {
	for _, ic := range f.items {
		if ic.ItemULID == itemULID {
			c := *ic
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetItemContextByID(ctx context.Context, itemID int64) (*ItemContext, error) {
	ic, ok := f.items[itemID]
	if !ok {
		return nil, nil
	}
	c := *ic
	return &c, nil
}

func (f *fakeStore) GetProjectApprover(ctx context.Context, projectID int64) (*int64, error) {
	if id, ok := f.approver[projectID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeStore) ListReviewerEmployeeIDs(ctx context.Context, role string) ([]int64, error) {
	return f.admins, nil
}

type fakeEnqueuer struct {
	sent []notification.Input
	err  error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, in notification.Input) (*notification.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &notification.Response{}, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("01TEST%020d", g.n), nil
}

func newTestService(now time.Time) (*Service, *fakeStore, *fakeEnqueuer) {
	store := newFakeStore()
	notif := &fakeEnqueuer{}
	svc := &Service{
		store:    store,
		notif:    notif,
		audit:    audit.Discard{},
		clock:    fixedClock{t: now},
		id:       &seqIDGen{},
		grace:    60,
		fallback: "admin",
	}
	return svc, store, notif
}

func handlerActor() auth.Context {
	return auth.Context{UserID: "acc-042", EmployeeID: 42, Role: "handler"}
}

func reviewerActor() auth.Context {
	return auth.Context{UserID: "acc-001", EmployeeID: 1, Role: "admin"}
}

func str(s string) *string { return &s }

// shift_end 17:00 の当番項目を1件用意する
func seedItem(store *fakeStore, projectID *int64) *ItemContext {
	ic := &ItemContext{
		ItemID:       100,
		ItemULID:     "01ITEM00000000000000000000",
		EmployeeID:   42,
		ScheduleDate: "2024-06-15",
		ShiftEnd:     str("17:00:00"),
		ProjectID:    projectID,
	}
	store.items[ic.ItemID] = ic
	return ic
}

// ===== CreateReport =====

func TestCreateReport_DraftWithEmptySections(t *testing.T) {
	svc, _, _ := newTestService(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	res, err := svc.CreateReport(context.Background(), CreateReportRequest{
		DogID: 7, Date: "2024-06-15",
	}, handlerActor())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, res.Status)
	require.Equal(t, int64(42), res.HandlerID)
	require.Len(t, res.Sections, 3)
	for _, sec := range res.Sections {
		require.Empty(t, sec.Content)
	}
}

func TestCreateReport_LinkedItemMustExist(t *testing.T) {
	svc, _, _ := newTestService(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	_, err := svc.CreateReport(context.Background(), CreateReportRequest{
		DogID: 7, Date: "2024-06-15", ScheduleItemULID: str("01NOSUCHITEM00000000000000"),
	}, handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeNotFound))
}

func TestCreateReport_RequiresEmployeeLink(t *testing.T) {
	svc, _, _ := newTestService(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	_, err := svc.CreateReport(context.Background(), CreateReportRequest{DogID: 7, Date: "2024-06-15"},
		auth.Context{UserID: "acc-099", EmployeeID: 0, Role: "handler"})
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))
}

// ===== Submit と時間窓 =====

func createLinkedDraft(t *testing.T, svc *Service, store *fakeStore, projectID *int64) *Response {
	t.Helper()
	ic := seedItem(store, projectID)
	res, err := svc.CreateReport(context.Background(), CreateReportRequest{
		DogID: 7, Date: "2024-06-15", ScheduleItemULID: &ic.ItemULID,
	}, handlerActor())
	require.NoError(t, err)
	return res
}

func TestSubmit_BeforeShiftEnd(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 16, 59, 59, 0, time.UTC))
	draft := createLinkedDraft(t, svc, store, nil)

	_, err := svc.Submit(context.Background(), draft.ReportULID, handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeWindowNotOpen))
}

func TestSubmit_AfterGrace(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 18, 0, 1, 0, time.UTC))
	draft := createLinkedDraft(t, svc, store, nil)

	_, err := svc.Submit(context.Background(), draft.ReportULID, handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeWindowExpired))
}

func TestSubmit_WithinWindow(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	draft := createLinkedDraft(t, svc, store, nil)

	res, err := svc.Submit(context.Background(), draft.ReportULID, handlerActor())
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, res.Status)
	require.NotNil(t, res.SubmittedAt)
}

func TestSubmit_StandaloneSkipsWindow(t *testing.T) {
	// 当番項目に紐付かない日報は時間窓の対象外
	svc, _, _ := newTestService(time.Date(2024, 6, 20, 3, 0, 0, 0, time.UTC))
	ctx := context.Background()

	draft, err := svc.CreateReport(ctx, CreateReportRequest{DogID: 7, Date: "2024-06-15"}, handlerActor())
	require.NoError(t, err)

	res, err := svc.Submit(ctx, draft.ReportULID, handlerActor())
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, res.Status)
}

func TestSubmit_ShiftWithoutEndTime(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	ic := seedItem(store, nil)
	ic.ShiftEnd = nil

	draft, err := svc.CreateReport(context.Background(), CreateReportRequest{
		DogID: 7, Date: "2024-06-15", ScheduleItemULID: &ic.ItemULID,
	}, handlerActor())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), draft.ReportULID, handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))
}

func TestSubmit_AlreadySubmitted(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	draft := createLinkedDraft(t, svc, store, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, draft.ReportULID, handlerActor())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, draft.ReportULID, handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeAlreadySubmitted))
}

// ===== 提出通知のファンアウト =====

func TestSubmit_NotifiesApproverAndAdmins(t *testing.T) {
	svc, store, notif := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	pid := int64(10)
	store.approver[pid] = 5
	store.admins = []int64{1, 2}
	draft := createLinkedDraft(t, svc, store, &pid)

	_, err := svc.Submit(context.Background(), draft.ReportULID, handlerActor())
	require.NoError(t, err)

	got := map[int64]int{}
	for _, in := range notif.sent {
		require.Equal(t, notification.TypeReportSubmitted, in.Type)
		got[in.UserID]++
	}
	require.Equal(t, map[int64]int{5: 1, 1: 1, 2: 1}, got)
}

func TestSubmit_ApproverInAdminPoolNotifiedOnce(t *testing.T) {
	svc, store, notif := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	pid := int64(10)
	store.approver[pid] = 1
	store.admins = []int64{1, 2}
	draft := createLinkedDraft(t, svc, store, &pid)

	_, err := svc.Submit(context.Background(), draft.ReportULID, handlerActor())
	require.NoError(t, err)
	require.Len(t, notif.sent, 2)
}

// 通知の失敗があっても提出・レビューは成立する
func TestEnqueueFailureDoesNotBlockTransitions(t *testing.T) {
	svc, store, notif := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	pid := int64(10)
	store.approver[pid] = 5
	store.admins = []int64{1}
	notif.err = errors.New("notification store down")
	draft := createLinkedDraft(t, svc, store, &pid)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, draft.ReportULID, handlerActor())
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, sub.Status)
	require.Empty(t, notif.sent)

	res, err := svc.Approve(ctx, sub.ReportULID, nil, reviewerActor())
	require.NoError(t, err)
	require.Equal(t, StatusApproved, res.Status)
}

// ===== Approve / Reject =====

func submittedReport(t *testing.T, svc *Service, store *fakeStore) *Response {
	t.Helper()
	draft := createLinkedDraft(t, svc, store, nil)
	res, err := svc.Submit(context.Background(), draft.ReportULID, handlerActor())
	require.NoError(t, err)
	return res
}

func TestApprove_NotifiesHandlerOnce(t *testing.T) {
	svc, store, notif := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	sub := submittedReport(t, svc, store)
	notif.sent = nil

	res, err := svc.Approve(context.Background(), sub.ReportULID, nil, reviewerActor())
	require.NoError(t, err)
	require.Equal(t, StatusApproved, res.Status)
	require.Equal(t, "acc-001", *res.ReviewedBy)

	require.Len(t, notif.sent, 1)
	require.Equal(t, int64(42), notif.sent[0].UserID)
	require.Equal(t, notification.TypeReportApproved, notif.sent[0].Type)
}

func TestReject_RequiresNotes(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	sub := submittedReport(t, svc, store)

	_, err := svc.Reject(context.Background(), sub.ReportULID, nil, reviewerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))

	_, err = svc.Reject(context.Background(), sub.ReportULID, str(""), reviewerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))
}

func TestReject_NotesReachHandler(t *testing.T) {
	svc, store, notif := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	sub := submittedReport(t, svc, store)
	notif.sent = nil

	res, err := svc.Reject(context.Background(), sub.ReportULID, str("健康セクションを追記してください"), reviewerActor())
	require.NoError(t, err)
	require.Equal(t, StatusRejected, res.Status)

	require.Len(t, notif.sent, 1)
	require.Equal(t, notification.TypeReportRejected, notif.sent[0].Type)
	require.Contains(t, notif.sent[0].Message, "健康セクションを追記してください")
}

func TestReview_TerminalStatesReject(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	sub := submittedReport(t, svc, store)
	ctx := context.Background()

	_, err := svc.Approve(ctx, sub.ReportULID, nil, reviewerActor())
	require.NoError(t, err)

	// APPROVED / REJECTED は終端。再レビューも差戻しも不可
	_, err = svc.Approve(ctx, sub.ReportULID, nil, reviewerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeConflict))
	_, err = svc.Reject(ctx, sub.ReportULID, str("やり直し"), reviewerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeConflict))
}

func TestReview_DraftNotReviewable(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	draft := createLinkedDraft(t, svc, store, nil)

	_, err := svc.Approve(context.Background(), draft.ReportULID, nil, reviewerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeConflict))
}

// ===== セクション編集と削除 =====

func TestUpdateSection_DraftOnly(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	draft := createLinkedDraft(t, svc, store, nil)
	ctx := context.Background()

	err := svc.UpdateSection(ctx, draft.ReportULID, SectionHealth, "食欲良好", handlerActor())
	require.NoError(t, err)

	err = svc.UpdateSection(ctx, draft.ReportULID, "grooming", "x", handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))

	_, err = svc.Submit(ctx, draft.ReportULID, handlerActor())
	require.NoError(t, err)

	err = svc.UpdateSection(ctx, draft.ReportULID, SectionHealth, "提出後の改変", handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeConflict))
}

func TestDelete_DraftOnly(t *testing.T) {
	svc, store, _ := newTestService(time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC))
	ctx := context.Background()

	draft, err := svc.CreateReport(ctx, CreateReportRequest{DogID: 7, Date: "2024-06-15"}, handlerActor())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, draft.ReportULID, handlerActor()))

	_, err = svc.Get(ctx, draft.ReportULID)
	require.True(t, domainerr.Is(err, domainerr.CodeNotFound))

	sub := submittedReport(t, svc, store)
	err = svc.Delete(ctx, sub.ReportULID, handlerActor())
	require.True(t, domainerr.Is(err, domainerr.CodeConflict))
}

// ===== CanSubmitItem =====

func TestCanSubmitItem(t *testing.T) {
	svc, store, _ := newTestService(time.Time{})
	ic := seedItem(store, nil)
	ctx := context.Background()

	require.Error(t, svc.CanSubmitItem(ctx, ic.ItemULID, time.Date(2024, 6, 15, 16, 0, 0, 0, time.UTC)))
	require.NoError(t, svc.CanSubmitItem(ctx, ic.ItemULID, time.Date(2024, 6, 15, 17, 0, 0, 0, time.UTC)))
	require.NoError(t, svc.CanSubmitItem(ctx, ic.ItemULID, time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)))
	require.Error(t, svc.CanSubmitItem(ctx, ic.ItemULID, time.Date(2024, 6, 15, 18, 0, 1, 0, time.UTC)))

	err := svc.CanSubmitItem(ctx, "01NOSUCHITEM00000000000000", time.Now())
	require.True(t, domainerr.Is(err, domainerr.CodeNotFound))
}
