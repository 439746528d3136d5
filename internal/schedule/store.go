package schedule

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"CANIS-backend/internal/platform/db"
	"CANIS-backend/internal/platform/domainerr"
)

type ScheduleStore interface {
	InsertSchedule(ctx context.Context, s *DailySchedule) error
	GetScheduleByULID(ctx context.Context, ulid string) (*DailySchedule, error)
	GetScheduleByID(ctx context.Context, id int64) (*DailySchedule, error)
	ListSchedules(ctx context.Context, q ListQuery) ([]DailySchedule, error)
	LockSchedule(ctx context.Context, scheduleID int64) (int64, error)
	ListStaleOpen(ctx context.Context, cutoff string) ([]DailySchedule, error)

	InsertItem(ctx context.Context, it *Item) error
	GetItemByULID(ctx context.Context, ulid string) (*Item, error)
	ListItems(ctx context.Context, scheduleID int64) ([]Item, error)
	UpdateItemStatus(ctx context.Context, itemID int64, status string, reason *string, replacementID *int64, notes *string) (int64, error)

	GetShift(ctx context.Context, shiftID int64) (*Shift, error)
	GetProjectName(ctx context.Context, projectID int64) (string, error)
}

type Store struct{ q db.DBTX }

func NewStore(q db.DBTX) ScheduleStore { return &Store{q: q} }

// MySQL 1062 = duplicate entry
func isDupKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func (s *Store) InsertSchedule(ctx context.Context, sc *DailySchedule) error {
	const q = `
	INSERT INTO daily_schedules
	  (schedule_ulid, schedule_date, project_key, project_id, status, notes, created_by, created_at)
	VALUES (?, ?, ?, ?, 'OPEN', ?, ?, UTC_TIMESTAMP(6))`

	var projectID any
	if sc.ProjectID != nil {
		projectID = *sc.ProjectID
	}
	res, err := s.q.ExecContext(ctx, q,
		sc.ScheduleULID, sc.Date, sc.projectKey(), projectID, noteOrNil(sc.Notes), sc.CreatedBy)
	if err != nil {
		// (schedule_date, project_key) のUNIQUE違反 = 同日同プロジェクトの二重作成
		if isDupKey(err) {
			return domainerr.ErrDuplicateSchedule(sc.Date, sc.projectKey())
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sc.ScheduleID = id
	sc.Status = StatusOpen
	return nil
}

const selectScheduleColumns = `
	SELECT schedule_id, schedule_ulid, DATE_FORMAT(schedule_date, '%Y-%m-%d'), project_id,
	       status, notes, created_by, created_at, locked_at
	FROM daily_schedules`

func scanSchedule(scan func(dest ...any) error) (*DailySchedule, error) {
	var sc DailySchedule
	var projectID sql.NullInt64
	var notes sql.NullString
	var lockedAt sql.NullTime
	err := scan(&sc.ScheduleID, &sc.ScheduleULID, &sc.Date, &projectID,
		&sc.Status, &notes, &sc.CreatedBy, &sc.CreatedAt, &lockedAt)
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		v := projectID.Int64
		sc.ProjectID = &v
	}
	if notes.Valid {
		v := notes.String
		sc.Notes = &v
	}
	if lockedAt.Valid {
		v := lockedAt.Time
		sc.LockedAt = &v
	}
	return &sc, nil
}

func (s *Store) GetScheduleByULID(ctx context.Context, ulid string) (*DailySchedule, error) {
	row := s.q.QueryRowContext(ctx, selectScheduleColumns+` WHERE schedule_ulid = ? LIMIT 1`, ulid)
	sc, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Store) GetScheduleByID(ctx context.Context, id int64) (*DailySchedule, error) {
	row := s.q.QueryRowContext(ctx, selectScheduleColumns+` WHERE schedule_id = ? LIMIT 1`, id)
	sc, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Store) ListSchedules(ctx context.Context, q ListQuery) ([]DailySchedule, error) {
	var (
		buf    bytes.Buffer
		wheres []string
		args   []any
	)
	buf.WriteString(selectScheduleColumns)
	if q.Date != "" {
		wheres = append(wheres, "schedule_date = ?")
		args = append(args, q.Date)
	}
	if q.ProjectID != nil {
		wheres = append(wheres, "project_id = ?")
		args = append(args, *q.ProjectID)
	}
	if q.Status != "" {
		wheres = append(wheres, "status = ?")
		args = append(args, q.Status)
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" ORDER BY schedule_date DESC, schedule_id DESC LIMIT %d OFFSET %d", limit, q.Offset))

	rows, err := s.q.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySchedule
	for rows.Next() {
		sc, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

// LockSchedule: OPEN のものだけをLOCKEDにする。戻り値は更新行数
// （0 = すでにLOCKED。エラーにするかは呼び出し側が決める）
func (s *Store) LockSchedule(ctx context.Context, scheduleID int64) (int64, error) {
	const q = `
	UPDATE daily_schedules
	SET status = 'LOCKED', locked_at = UTC_TIMESTAMP(6)
	WHERE schedule_id = ? AND status = 'OPEN'`
	res, err := s.q.ExecContext(ctx, q, scheduleID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListStaleOpen: cutoff 以前の日付でまだOPENなスケジュール
func (s *Store) ListStaleOpen(ctx context.Context, cutoff string) ([]DailySchedule, error) {
	rows, err := s.q.QueryContext(ctx,
		selectScheduleColumns+` WHERE schedule_date <= ? AND status = 'OPEN' ORDER BY schedule_date ASC, schedule_id ASC`,
		cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySchedule
	for rows.Next() {
		sc, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

// ===== items =====

func (s *Store) InsertItem(ctx context.Context, it *Item) error {
	const q = `
	INSERT INTO daily_schedule_items
	  (item_ulid, schedule_id, employee_id, dog_id, shift_id, status, notes, updated_at)
	VALUES (?, ?, ?, ?, ?, 'PLANNED', ?, UTC_TIMESTAMP(6))`

	res, err := s.q.ExecContext(ctx, q,
		it.ItemULID, it.ScheduleID, it.EmployeeID, nilIfZero(it.DogID), nilIfZero(it.ShiftID), noteOrNil(it.Notes))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ItemID = id
	it.Status = ItemPlanned
	return nil
}

const selectItemColumns = `
	SELECT item_id, item_ulid, schedule_id, employee_id, dog_id, shift_id, status,
	       absence_reason, replacement_employee_id, notes, updated_at
	FROM daily_schedule_items`

func scanItem(scan func(dest ...any) error) (*Item, error) {
	var it Item
	var dogID, shiftID, replacementID sql.NullInt64
	var reason, notes sql.NullString
	err := scan(&it.ItemID, &it.ItemULID, &it.ScheduleID, &it.EmployeeID, &dogID, &shiftID, &it.Status,
		&reason, &replacementID, &notes, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dogID.Valid {
		v := dogID.Int64
		it.DogID = &v
	}
	if shiftID.Valid {
		v := shiftID.Int64
		it.ShiftID = &v
	}
	if replacementID.Valid {
		v := replacementID.Int64
		it.ReplacementEmployeeID = &v
	}
	if reason.Valid {
		v := reason.String
		it.AbsenceReason = &v
	}
	if notes.Valid {
		v := notes.String
		it.Notes = &v
	}
	return &it, nil
}

func (s *Store) GetItemByULID(ctx context.Context, ulid string) (*Item, error) {
	row := s.q.QueryRowContext(ctx, selectItemColumns+` WHERE item_ulid = ? LIMIT 1`, ulid)
	it, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Store) ListItems(ctx context.Context, scheduleID int64) ([]Item, error) {
	rows, err := s.q.QueryContext(ctx, selectItemColumns+` WHERE schedule_id = ? ORDER BY item_id ASC`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// UpdateItemStatus: 項目の状態遷移。同一項目への並行遷移は last-writer-wins
func (s *Store) UpdateItemStatus(ctx context.Context, itemID int64, status string, reason *string, replacementID *int64, notes *string) (int64, error) {
	const q = `
	UPDATE daily_schedule_items
	SET status = ?, absence_reason = ?, replacement_employee_id = ?, notes = COALESCE(?, notes),
	    updated_at = UTC_TIMESTAMP(6)
	WHERE item_id = ?`
	res, err := s.q.ExecContext(ctx, q, status, noteOrNil(reason), nilIfZero(replacementID), noteOrNil(notes), itemID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ===== lookups =====

func (s *Store) GetShift(ctx context.Context, shiftID int64) (*Shift, error) {
	const q = `SELECT shift_id, name, start_time, end_time FROM shifts WHERE shift_id = ? LIMIT 1`
	var sh Shift
	var start, end sql.NullString
	err := s.q.QueryRowContext(ctx, q, shiftID).Scan(&sh.ShiftID, &sh.Name, &start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if start.Valid {
		v := start.String
		sh.StartTime = &v
	}
	if end.Valid {
		v := end.String
		sh.EndTime = &v
	}
	return &sh, nil
}

func (s *Store) GetProjectName(ctx context.Context, projectID int64) (string, error) {
	const q = `SELECT name FROM projects WHERE project_id = ? LIMIT 1`
	var name string
	if err := s.q.QueryRowContext(ctx, q, projectID).Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return name, nil
}

// ===== helpers =====

func noteOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nilIfZero(n *int64) any {
	if n == nil || *n == 0 {
		return nil
	}
	return *n
}
