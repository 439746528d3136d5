package report

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"CANIS-backend/internal/notification"
	"CANIS-backend/internal/platform/audit"
	"CANIS-backend/internal/platform/auth"
	"CANIS-backend/internal/platform/db"
	"CANIS-backend/internal/platform/domainerr"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Service本体 =====

type Service struct {
	store    ReportStore
	notif    notification.Enqueuer
	audit    audit.Sink
	clock    Clock
	id       IDGen
	grace    int    // 提出猶予（分）
	fallback string // 承認者未設定時に通知するロール
}

func NewService(conn *sql.DB, notif notification.Enqueuer, sink audit.Sink, cfg db.WorkflowConfig) *Service {
	return &Service{
		store:    NewStore(conn),
		notif:    notif,
		audit:    sink,
		clock:    realClock{},
		id:       ulidGen{},
		grace:    cfg.GraceMinutes,
		fallback: cfg.FallbackRole,
	}
}

// CreateReport: 常にDRAFTで作成。health/care/behavior の空セクションを
// 3つ同時に作る（未記入でも編集フォーム側の分岐が要らなくなる）
func (s *Service) CreateReport(ctx context.Context, req CreateReportRequest, ac auth.Context) (*Response, error) {
	if ac.EmployeeID == 0 {
		return nil, domainerr.ErrInvalid("account is not linked to an employee")
	}
	if req.DogID <= 0 {
		return nil, domainerr.ErrInvalid("dog_id is required")
	}
	if _, err := time.ParseInLocation(DateLayout, req.Date, time.UTC); err != nil {
		return nil, domainerr.ErrInvalid("date must be YYYY-MM-DD")
	}

	var itemID *int64
	if req.ScheduleItemULID != nil && *req.ScheduleItemULID != "" {
		ic, err := s.store.GetItemContext(ctx, *req.ScheduleItemULID)
		if err != nil {
			return nil, err
		}
		if ic == nil {
			return nil, domainerr.ErrNotFound("schedule item")
		}
		itemID = &ic.ItemID
	}

	uid, err := s.id.New()
	if err != nil {
		return nil, err
	}
	r := &HandlerReport{
		ReportULID:     uid,
		HandlerID:      ac.EmployeeID,
		DogID:          req.DogID,
		Date:           req.Date,
		ScheduleItemID: itemID,
	}
	if err := s.store.ExecCreateReport(ctx, r); err != nil {
		return nil, err
	}

	resp := r.toDTO()
	resp.Sections = emptySections()
	return &resp, nil
}

// CanSubmitItem: 当番項目に対する提出時間窓の判定。
// shift_end <= now <= shift_end + grace のみ提出可
func (s *Service) CanSubmitItem(ctx context.Context, itemULID string, now time.Time) error {
	ic, err := s.store.GetItemContext(ctx, itemULID)
	if err != nil {
		return err
	}
	if ic == nil {
		return domainerr.ErrNotFound("schedule item")
	}
	return s.checkItemWindow(ic, now)
}

func (s *Service) checkItemWindow(ic *ItemContext, now time.Time) error {
	if ic.ShiftEnd == nil {
		return domainerr.ErrInvalid("shift has no end time")
	}
	end, err := shiftEndAt(ic.ScheduleDate, *ic.ShiftEnd)
	if err != nil {
		return domainerr.ErrInternal("broken shift end time")
	}
	return checkWindow(now, end, s.grace)
}

// Submit: DRAFT -> SUBMITTED。当番項目に紐付く日報は時間窓内のみ。
// 提出後、プロジェクトの承認担当者（いれば）と adminロール全員に通知する
func (s *Service) Submit(ctx context.Context, reportULID string, ac auth.Context) (*Response, error) {
	r, err := s.store.GetByULID(ctx, reportULID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domainerr.ErrNotFound("report")
	}
	if r.Status != StatusDraft {
		return nil, domainerr.ErrAlreadySubmitted("report is not in draft state")
	}

	var ic *ItemContext
	if r.ScheduleItemID != nil {
		ic, err = s.store.GetItemContextByID(ctx, *r.ScheduleItemID)
		if err != nil {
			return nil, err
		}
		if ic == nil {
			return nil, domainerr.ErrNotFound("schedule item")
		}
		if err := s.checkItemWindow(ic, s.clock.Now().UTC()); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now().UTC()
	n, err := s.store.MarkSubmitted(ctx, r.ReportID, now)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// 読取り後に並行リクエストが先に提出済み
		return nil, domainerr.ErrAlreadySubmitted("report is not in draft state")
	}
	r.Status = StatusSubmitted
	r.SubmittedAt = &now

	s.notifyReviewers(ctx, r, ic)

	s.audit.Record(ctx, audit.Entry{
		ActorID:  ac.UserID,
		Action:   "submit_report",
		Entity:   "handler_report",
		EntityID: r.ReportULID,
		OldValue: map[string]any{"status": StatusDraft},
		NewValue: map[string]any{"status": StatusSubmitted},
	})

	resp := r.toDTO()
	return &resp, nil
}

// Approve: SUBMITTED -> APPROVED（終端）。提出者へ結果を通知
func (s *Service) Approve(ctx context.Context, reportULID string, notes *string, ac auth.Context) (*Response, error) {
	return s.review(ctx, reportULID, StatusApproved, notes, ac)
}

// Reject: SUBMITTED -> REJECTED（終端）。差戻し理由は必須
func (s *Service) Reject(ctx context.Context, reportULID string, notes *string, ac auth.Context) (*Response, error) {
	if notes == nil || *notes == "" {
		return nil, domainerr.ErrInvalid("rejection notes are required")
	}
	return s.review(ctx, reportULID, StatusRejected, notes, ac)
}

func (s *Service) review(ctx context.Context, reportULID, status string, notes *string, ac auth.Context) (*Response, error) {
	r, err := s.store.GetByULID(ctx, reportULID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domainerr.ErrNotFound("report")
	}
	if r.Status != StatusSubmitted {
		if r.Status == StatusDraft {
			return nil, domainerr.ErrConflict("report has not been submitted")
		}
		return nil, domainerr.ErrConflict("report is already reviewed")
	}

	n, err := s.store.MarkReviewed(ctx, r.ReportID, status, ac.UserID, notes)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domainerr.ErrConflict("report is not awaiting review")
	}
	oldStatus := r.Status
	r.Status = status
	r.ReviewedBy = &ac.UserID
	r.ReviewNotes = notes

	// 提出者へ結果通知（承認・差戻しとも1通）
	title := "日報承認"
	ntype := notification.TypeReportApproved
	msg := fmt.Sprintf("%s の日報が承認されました", r.Date)
	if status == StatusRejected {
		title = "日報差戻し"
		ntype = notification.TypeReportRejected
		msg = fmt.Sprintf("%s の日報が差し戻されました: %s", r.Date, *notes)
	}
	s.enqueue(ctx, notification.Input{
		UserID:      r.HandlerID,
		Type:        ntype,
		Title:       title,
		Message:     msg,
		RelatedType: notification.RelatedReport,
		RelatedID:   r.ReportULID,
	})

	action := "approve_report"
	if status == StatusRejected {
		action = "reject_report"
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:  ac.UserID,
		Action:   action,
		Entity:   "handler_report",
		EntityID: r.ReportULID,
		OldValue: map[string]any{"status": oldStatus},
		NewValue: map[string]any{"status": status, "notes": notes},
	})

	resp := r.toDTO()
	return &resp, nil
}

// UpdateSection: DRAFTの間だけセクションを編集できる
func (s *Service) UpdateSection(ctx context.Context, reportULID, sectionType, content string, ac auth.Context) error {
	if !validSectionType(sectionType) {
		return domainerr.ErrInvalid("unknown section type")
	}
	r, err := s.store.GetByULID(ctx, reportULID)
	if err != nil {
		return err
	}
	if r == nil {
		return domainerr.ErrNotFound("report")
	}
	if r.Status != StatusDraft {
		return domainerr.ErrConflict("report is no longer editable")
	}
	n, err := s.store.UpdateSection(ctx, r.ReportID, sectionType, content)
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerr.ErrNotFound("report section")
	}
	return nil
}

// Delete: DRAFTのみ削除可
func (s *Service) Delete(ctx context.Context, reportULID string, ac auth.Context) error {
	r, err := s.store.GetByULID(ctx, reportULID)
	if err != nil {
		return err
	}
	if r == nil {
		return domainerr.ErrNotFound("report")
	}
	if r.Status != StatusDraft {
		return domainerr.ErrConflict("only draft reports can be deleted")
	}
	n, err := s.store.DeleteDraft(ctx, r.ReportID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerr.ErrConflict("only draft reports can be deleted")
	}
	return nil
}

// ===== reads =====

func (s *Service) Get(ctx context.Context, reportULID string) (*Response, error) {
	r, err := s.store.GetByULID(ctx, reportULID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domainerr.ErrNotFound("report")
	}
	secs, err := s.store.ListSections(ctx, r.ReportID)
	if err != nil {
		return nil, err
	}
	resp := r.toDTO()
	resp.Sections = make([]SectionResponse, 0, len(secs))
	for _, sec := range secs {
		resp.Sections = append(resp.Sections, SectionResponse{Type: sec.Type, Content: sec.Content})
	}
	return &resp, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]Response, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	rows, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]Response, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, nil
}

// ===== helpers =====

// notifyReviewers: 承認担当者 + adminロール全員に重複なしで通知。
// 通知先の解決に失敗しても提出自体は成立させる
func (s *Service) notifyReviewers(ctx context.Context, r *HandlerReport, ic *ItemContext) {
	recipients := make(map[int64]struct{})

	if ic != nil && ic.ProjectID != nil {
		approver, err := s.store.GetProjectApprover(ctx, *ic.ProjectID)
		if err != nil {
			log.Printf("[WARN] approver lookup failed project=%d: %v", *ic.ProjectID, err)
		} else if approver != nil {
			recipients[*approver] = struct{}{}
		}
	}

	pool, err := s.store.ListReviewerEmployeeIDs(ctx, s.fallback)
	if err != nil {
		log.Printf("[WARN] reviewer pool lookup failed role=%s: %v", s.fallback, err)
	}
	for _, id := range pool {
		recipients[id] = struct{}{}
	}

	for id := range recipients {
		s.enqueue(ctx, notification.Input{
			UserID:      id,
			Type:        notification.TypeReportSubmitted,
			Title:       "日報提出",
			Message:     fmt.Sprintf("%s の日報が提出されました", r.Date),
			RelatedType: notification.RelatedReport,
			RelatedID:   r.ReportULID,
		})
	}
}

func (s *Service) enqueue(ctx context.Context, in notification.Input) {
	if _, err := s.notif.Enqueue(ctx, in); err != nil {
		log.Printf("[WARN] notification enqueue failed type=%s user=%d: %v", in.Type, in.UserID, err)
	}
}

func validSectionType(t string) bool {
	for _, st := range sectionTypes {
		if st == t {
			return true
		}
	}
	return false
}

func emptySections() []SectionResponse {
	out := make([]SectionResponse, 0, len(sectionTypes))
	for _, st := range sectionTypes {
		out = append(out, SectionResponse{Type: st, Content: ""})
	}
	return out
}
