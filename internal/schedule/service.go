package schedule

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"CANIS-backend/internal/attendance"
	"CANIS-backend/internal/notification"
	"CANIS-backend/internal/platform/audit"
	"CANIS-backend/internal/platform/auth"
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

// AttendanceWriter: プロジェクト側の勤怠書き込み口（attendance.Service が実装）
type AttendanceWriter interface {
	SetFromProject(ctx context.Context, employeeID int64, date, status string, projectID int64, note *string, ac auth.Context) error
}

// ===== Service本体 =====

type Service struct {
	store ScheduleStore
	notif notification.Enqueuer
	att   AttendanceWriter
	audit audit.Sink
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB, notif notification.Enqueuer, att AttendanceWriter, sink audit.Sink) *Service {
	return &Service{
		store: NewStore(db),
		notif: notif,
		att:   att,
		audit: sink,
		clock: realClock{},
		id:    ulidGen{},
	}
}

// CreateSchedule: (日付, プロジェクト) につき1件。二重作成は DUPLICATE_SCHEDULE
func (s *Service) CreateSchedule(ctx context.Context, req CreateScheduleRequest, ac auth.Context) (*ScheduleResponse, error) {
	if _, err := time.ParseInLocation(DateLayout, req.Date, time.UTC); err != nil {
		return nil, domainerr.ErrInvalid("date must be YYYY-MM-DD")
	}

	uid, err := s.id.New()
	if err != nil {
		return nil, err
	}
	sc := &DailySchedule{
		ScheduleULID: uid,
		Date:         req.Date,
		ProjectID:    req.ProjectID,
		Notes:        req.Notes,
		CreatedBy:    ac.UserID,
	}
	if err := s.store.InsertSchedule(ctx, sc); err != nil {
		return nil, err
	}

	resp := sc.toDTO()
	return &resp, nil
}

// AddItem: OPENなスケジュールにのみ追加できる。割当先には通知を積む
func (s *Service) AddItem(ctx context.Context, scheduleULID string, req AddItemRequest, ac auth.Context) (*ItemResponse, error) {
	sc, err := s.store.GetScheduleByULID(ctx, scheduleULID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, domainerr.ErrNotFound("schedule")
	}
	if sc.Status == StatusLocked {
		return nil, domainerr.ErrScheduleLocked()
	}
	if req.EmployeeID <= 0 {
		return nil, domainerr.ErrInvalid("employee_id is required")
	}
	if req.ShiftID != nil {
		sh, err := s.store.GetShift(ctx, *req.ShiftID)
		if err != nil {
			return nil, err
		}
		if sh == nil {
			return nil, domainerr.ErrNotFound("shift")
		}
	}

	uid, err := s.id.New()
	if err != nil {
		return nil, err
	}
	it := &Item{
		ItemULID:   uid,
		ScheduleID: sc.ScheduleID,
		EmployeeID: req.EmployeeID,
		DogID:      req.DogID,
		ShiftID:    req.ShiftID,
	}
	if err := s.store.InsertItem(ctx, it); err != nil {
		return nil, err
	}

	s.enqueue(ctx, notification.Input{
		UserID:      it.EmployeeID,
		Type:        notification.TypeScheduleAssigned,
		Title:       "当番割当",
		Message:     fmt.Sprintf("%s の当番に割り当てられました", s.scheduleLabel(ctx, sc)),
		RelatedType: notification.RelatedScheduleItem,
		RelatedID:   it.ItemULID,
	})

	resp := it.toDTO()
	return &resp, nil
}

// MarkPresent: PLANNEDに限らず遷移可（同一項目へのリトライはlast-writer-wins）
func (s *Service) MarkPresent(ctx context.Context, itemULID string, ac auth.Context) (*ItemResponse, error) {
	return s.markItem(ctx, itemULID, ItemPresent, nil, ac)
}

func (s *Service) MarkAbsent(ctx context.Context, itemULID string, reason string, ac auth.Context) (*ItemResponse, error) {
	if reason == "" {
		return nil, domainerr.ErrInvalid("reason is required")
	}
	return s.markItem(ctx, itemULID, ItemAbsent, &reason, ac)
}

func (s *Service) markItem(ctx context.Context, itemULID string, status string, reason *string, ac auth.Context) (*ItemResponse, error) {
	it, sc, err := s.itemWithOpenSchedule(ctx, itemULID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.UpdateItemStatus(ctx, it.ItemID, status, reason, nil, nil); err != nil {
		return nil, err
	}
	it.Status = status
	it.AbsenceReason = reason
	it.ReplacementEmployeeID = nil

	// プロジェクト配下の当番確定は project 経路の勤怠にも反映する。
	// 勤怠反映の失敗で当番ステータス自体は巻き戻さない
	if sc.ProjectID != nil {
		attStatus := attendance.StatusPresent
		if status == ItemAbsent {
			attStatus = attendance.StatusAbsent
		}
		if err := s.att.SetFromProject(ctx, it.EmployeeID, sc.Date, attStatus, *sc.ProjectID, reason, ac); err != nil {
			log.Printf("[WARN] project attendance write failed item=%s: %v", it.ItemULID, err)
		}
	}

	resp := it.toDTO()
	return &resp, nil
}

// Replace: 欠番の代わりを立てる。元担当の欠席理由と代番者を記録し、代番者へ通知
func (s *Service) Replace(ctx context.Context, itemULID string, req ReplaceRequest, ac auth.Context) (*ItemResponse, error) {
	it, sc, err := s.itemWithOpenSchedule(ctx, itemULID)
	if err != nil {
		return nil, err
	}
	if req.ReplacementEmployeeID <= 0 {
		return nil, domainerr.ErrInvalid("replacement_employee_id is required")
	}
	if req.ReplacementEmployeeID == it.EmployeeID {
		return nil, domainerr.ErrInvalid("replacement must differ from the assigned employee")
	}

	oldStatus := it.Status
	if _, err := s.store.UpdateItemStatus(ctx, it.ItemID, ItemReplaced, &req.Reason, &req.ReplacementEmployeeID, req.Notes); err != nil {
		return nil, err
	}
	it.Status = ItemReplaced
	it.AbsenceReason = &req.Reason
	it.ReplacementEmployeeID = &req.ReplacementEmployeeID
	if req.Notes != nil {
		it.Notes = req.Notes
	}

	s.enqueue(ctx, notification.Input{
		UserID:      req.ReplacementEmployeeID,
		Type:        notification.TypeScheduleReplaced,
		Title:       "代番割当",
		Message:     fmt.Sprintf("%s の当番を代わりに担当してください", s.scheduleLabel(ctx, sc)),
		RelatedType: notification.RelatedScheduleItem,
		RelatedID:   it.ItemULID,
	})

	s.audit.Record(ctx, audit.Entry{
		ActorID:  ac.UserID,
		Action:   "replace_schedule_item",
		Entity:   "daily_schedule_item",
		EntityID: it.ItemULID,
		OldValue: map[string]any{"status": oldStatus, "employee_id": it.EmployeeID},
		NewValue: map[string]any{"status": ItemReplaced, "replacement_employee_id": req.ReplacementEmployeeID, "reason": req.Reason},
	})

	resp := it.toDTO()
	return &resp, nil
}

// Lock: OPEN -> LOCKED（このコンポーネントからの解除遷移はない。
// 解除は外部の管理者オペレーション扱い）
func (s *Service) Lock(ctx context.Context, scheduleULID string, ac auth.Context) (*ScheduleResponse, error) {
	sc, err := s.store.GetScheduleByULID(ctx, scheduleULID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, domainerr.ErrNotFound("schedule")
	}
	if sc.Status == StatusLocked {
		return nil, domainerr.ErrAlreadyLocked()
	}

	n, err := s.store.LockSchedule(ctx, sc.ScheduleID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// 読取り後に別リクエストがロック済み
		return nil, domainerr.ErrAlreadyLocked()
	}
	sc.Status = StatusLocked
	now := s.clock.Now().UTC()
	sc.LockedAt = &now

	s.audit.Record(ctx, audit.Entry{
		ActorID:  ac.UserID,
		Action:   "lock_schedule",
		Entity:   "daily_schedule",
		EntityID: sc.ScheduleULID,
		OldValue: map[string]any{"status": StatusOpen},
		NewValue: map[string]any{"status": StatusLocked},
	})

	resp := sc.toDTO()
	return &resp, nil
}

// AutoLockStale: 前日以前でまだOPENのスケジュールを一括ロックする。
// 日次の外部トリガー（cron相当）から叩かれる前提で、再実行しても安全
// （ロック済みはno-op、エラーにしない）。
func (s *Service) AutoLockStale(ctx context.Context, asOf string, ac auth.Context) (int64, error) {
	base, err := time.ParseInLocation(DateLayout, asOf, time.UTC)
	if err != nil {
		return 0, domainerr.ErrInvalid("as_of must be YYYY-MM-DD")
	}
	cutoff := base.AddDate(0, 0, -1).Format(DateLayout)

	stale, err := s.store.ListStaleOpen(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var locked int64
	for i := range stale {
		n, err := s.store.LockSchedule(ctx, stale[i].ScheduleID)
		if err != nil {
			return locked, err
		}
		if n == 0 {
			continue // 並行実行が先にロック済み
		}
		locked += n
		s.audit.Record(ctx, audit.Entry{
			ActorID:  ac.UserID,
			Action:   "auto_lock_schedule",
			Entity:   "daily_schedule",
			EntityID: stale[i].ScheduleULID,
			OldValue: map[string]any{"status": StatusOpen},
			NewValue: map[string]any{"status": StatusLocked},
		})
	}
	return locked, nil
}

// ===== reads =====

func (s *Service) GetSchedule(ctx context.Context, scheduleULID string) (*ScheduleResponse, error) {
	sc, err := s.store.GetScheduleByULID(ctx, scheduleULID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, domainerr.ErrNotFound("schedule")
	}
	items, err := s.store.ListItems(ctx, sc.ScheduleID)
	if err != nil {
		return nil, err
	}
	resp := sc.toDTO()
	resp.Items = make([]ItemResponse, 0, len(items))
	for i := range items {
		resp.Items = append(resp.Items, items[i].toDTO())
	}
	return &resp, nil
}

func (s *Service) ListSchedules(ctx context.Context, q ListQuery) ([]ScheduleResponse, error) {
	if q.Date != "" {
		if _, err := time.ParseInLocation(DateLayout, q.Date, time.UTC); err != nil {
			return nil, domainerr.ErrInvalid("date must be YYYY-MM-DD")
		}
	}
	rows, err := s.store.ListSchedules(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]ScheduleResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, nil
}

// ===== helpers =====

// scheduleLabel: 通知文面用の「日付（プロジェクト名）」。
// 名前解決に失敗しても通知自体は日付だけで出す
func (s *Service) scheduleLabel(ctx context.Context, sc *DailySchedule) string {
	if sc.ProjectID == nil {
		return sc.Date
	}
	name, err := s.store.GetProjectName(ctx, *sc.ProjectID)
	if err != nil {
		log.Printf("[WARN] project name lookup failed project=%d: %v", *sc.ProjectID, err)
		return sc.Date
	}
	if name == "" {
		return sc.Date
	}
	return fmt.Sprintf("%s（%s）", sc.Date, name)
}

// itemWithOpenSchedule: 項目と親スケジュールをロードし、LOCKEDなら拒否
func (s *Service) itemWithOpenSchedule(ctx context.Context, itemULID string) (*Item, *DailySchedule, error) {
	it, err := s.store.GetItemByULID(ctx, itemULID)
	if err != nil {
		return nil, nil, err
	}
	if it == nil {
		return nil, nil, domainerr.ErrNotFound("schedule item")
	}
	sc, err := s.store.GetScheduleByID(ctx, it.ScheduleID)
	if err != nil {
		return nil, nil, err
	}
	if sc == nil {
		return nil, nil, domainerr.ErrNotFound("schedule")
	}
	if sc.Status == StatusLocked {
		return nil, nil, domainerr.ErrScheduleLocked()
	}
	return it, sc, nil
}

// enqueue: 通知はfire-and-forget。失敗しても遷移は続行する
func (s *Service) enqueue(ctx context.Context, in notification.Input) {
	if _, err := s.notif.Enqueue(ctx, in); err != nil {
		log.Printf("[WARN] notification enqueue failed type=%s user=%d: %v", in.Type, in.UserID, err)
	}
}
