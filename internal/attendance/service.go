package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CANIS-backend/internal/platform/audit"
	"CANIS-backend/internal/platform/auth"
	"CANIS-backend/internal/platform/domainerr"
)

type Service struct {
	store AttendanceStore
	audit audit.Sink
}

func NewService(db *sql.DB, sink audit.Sink) *Service {
	return &Service{store: NewStore(db), audit: sink}
}

// auditSnapshot: 監査ログに残す old/new の形
type auditSnapshot struct {
	Status string  `json:"status"`
	Source string  `json:"source"`
	Note   *string `json:"note,omitempty"`
}

func snapshotOf(a *AttendanceDay) any {
	if a == nil {
		return nil
	}
	return auditSnapshot{Status: a.Status, Source: a.Source, Note: a.Note}
}

// SetGlobal: グローバル(HR)経路の勤怠登録・更新。
// 対象日がプロジェクト所有なら OWNERSHIP_CONFLICT を返す
// （黙って上書きせず、プロジェクト側で編集するよう呼び出し元に伝えるため）。
func (s *Service) SetGlobal(ctx context.Context, req SetGlobalRequest, ac auth.Context) (*Response, error) {
	if req.EmployeeID <= 0 {
		return nil, domainerr.ErrInvalid("employee_id is required")
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, domainerr.ErrInvalid("date must be YYYY-MM-DD or 'today'")
	}
	status := strings.ToUpper(req.Status)
	if _, ok := validStatuses[status]; !ok {
		return nil, domainerr.ErrInvalid("unknown attendance status")
	}

	old, cur, err := s.store.ExecSetGlobal(ctx, req.EmployeeID, date, status, req.Note, ac.UserID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  ac.UserID,
		Action:   "set_global_attendance",
		Entity:   "attendance_day",
		EntityID: dayKey(req.EmployeeID, date),
		OldValue: snapshotOf(old),
		NewValue: snapshotOf(cur),
	})

	resp := cur.toDTO()
	return &resp, nil
}

// SetFromProject: プロジェクト側プロセス用の書き込み経路。
// schedule パッケージの MarkPresent / MarkAbsent から呼ばれる。
func (s *Service) SetFromProject(ctx context.Context, employeeID int64, date, status string, projectID int64, note *string, ac auth.Context) error {
	if employeeID <= 0 {
		return domainerr.ErrInvalid("employee_id is required")
	}
	d, err := normalizeDate(date)
	if err != nil {
		return domainerr.ErrInvalid("date must be YYYY-MM-DD")
	}
	st := strings.ToUpper(status)
	if _, ok := validStatuses[st]; !ok {
		return domainerr.ErrInvalid("unknown attendance status")
	}

	old, cur, err := s.store.ExecSetFromProject(ctx, employeeID, d, st, projectID, note, ac.UserID)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  ac.UserID,
		Action:   "set_project_attendance",
		Entity:   "attendance_day",
		EntityID: dayKey(employeeID, d),
		OldValue: snapshotOf(old),
		NewValue: snapshotOf(cur),
	})
	return nil
}

func (s *Service) ListEditable(ctx context.Context, q ListQuery) ([]EditableRow, int64, error) {
	date, err := normalizeDate(q.Date)
	if err != nil {
		return nil, 0, domainerr.ErrInvalid("date must be YYYY-MM-DD or 'today'")
	}
	q.Date = date
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return s.store.ListEditable(ctx, q)
}

// ===== helpers =====

func dayKey(employeeID int64, date string) string {
	return fmt.Sprintf("%d:%s", employeeID, date)
}

func normalizeDate(v string) (string, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "today" {
		return time.Now().UTC().Format(DateLayout), nil
	}
	if _, err := time.ParseInLocation(DateLayout, v, time.UTC); err != nil {
		return "", err
	}
	return v, nil
}
