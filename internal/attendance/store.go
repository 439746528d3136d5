package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"CANIS-backend/internal/ownership"
	"CANIS-backend/internal/platform/db"
	"CANIS-backend/internal/platform/domainerr"
)

type AttendanceStore interface {
	ExecSetGlobal(ctx context.Context, employeeID int64, date, status string, note *string, actor string) (old, cur *AttendanceDay, err error)
	ExecSetFromProject(ctx context.Context, employeeID int64, date, status string, projectID int64, note *string, actor string) (old, cur *AttendanceDay, err error)
	ListEditable(ctx context.Context, q ListQuery) ([]EditableRow, int64, error)
	ListRange(ctx context.Context, from, to string) ([]ExportRow, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AttendanceStore { return &Store{db: db} }

const selectDayColumns = `
	SELECT attendance_id, employee_id, DATE_FORMAT(att_date, '%Y-%m-%d'), status, note,
	       source, project_id, locked, updated_by, updated_at
	FROM attendance_days`

func scanDay(row *sql.Row) (*AttendanceDay, error) {
	var a AttendanceDay
	var note sql.NullString
	var projectID sql.NullInt64
	var lockedInt int
	err := row.Scan(&a.AttendanceID, &a.EmployeeID, &a.Date, &a.Status, &note,
		&a.Source, &projectID, &lockedInt, &a.UpdatedBy, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if note.Valid {
		v := note.String
		a.Note = &v
	}
	if projectID.Valid {
		v := projectID.Int64
		a.ProjectID = &v
	}
	a.Locked = lockedInt != 0
	return &a, nil
}

func getDay(ctx context.Context, q db.DBTX, employeeID int64, date string, forUpdate bool) (*AttendanceDay, error) {
	query := selectDayColumns + ` WHERE employee_id = ? AND att_date = ? LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanDay(q.QueryRowContext(ctx, query, employeeID, date))
}

// ExecSetGlobal: グローバル(HR)経路の書き込み。
// 所有判定は upsert と同一Tx内で行う（アサインメント作成との競合対策。
// 読み→書きの間に所有が変わる余地を残さない）。
func (s *Store) ExecSetGlobal(ctx context.Context, employeeID int64, date, status string, note *string, actor string) (old, cur *AttendanceDay, err error) {
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		// Tx内で所有を再判定
		res, rerr := ownership.NewStore(tx).Resolve(ctx, employeeID, date)
		if rerr != nil {
			return rerr
		}
		if res.IsOwned {
			return domainerr.ErrOwnershipConflict(res.ProjectName)
		}

		o, gerr := getDay(ctx, tx, employeeID, date, true)
		if gerr != nil {
			return gerr
		}
		old = o
		// project 由来の行はアサインメントが終了していてもグローバル経路では触らせない
		if old != nil && old.Locked {
			return domainerr.ErrConflict("attendance day is locked (source=project)")
		}

		const up = `
		INSERT INTO attendance_days
		  (employee_id, att_date, status, note, source, project_id, locked, updated_by, updated_at)
		VALUES (?, ?, ?, ?, 'global', NULL, 0, ?, UTC_TIMESTAMP(6))
		ON DUPLICATE KEY UPDATE
		  status     = VALUES(status),
		  note       = VALUES(note),
		  source     = 'global',
		  project_id = NULL,
		  locked     = 0,
		  updated_by = VALUES(updated_by),
		  updated_at = VALUES(updated_at)`
		if _, uerr := tx.ExecContext(ctx, up, employeeID, date, status, noteOrNil(note), actor); uerr != nil {
			return uerr
		}

		c, gerr := getDay(ctx, tx, employeeID, date, false)
		if gerr != nil {
			return gerr
		}
		if c == nil {
			return domainerr.ErrInternal("upserted but not found")
		}
		cur = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return old, cur, nil
}

// ExecSetFromProject: プロジェクト側プロセスの書き込み。
// プロジェクト側のデータが正なので、既存行は無条件に上書きして locked=1 にする。
func (s *Store) ExecSetFromProject(ctx context.Context, employeeID int64, date, status string, projectID int64, note *string, actor string) (old, cur *AttendanceDay, err error) {
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		o, gerr := getDay(ctx, tx, employeeID, date, true)
		if gerr != nil {
			return gerr
		}
		old = o

		const up = `
		INSERT INTO attendance_days
		  (employee_id, att_date, status, note, source, project_id, locked, updated_by, updated_at)
		VALUES (?, ?, ?, ?, 'project', ?, 1, ?, UTC_TIMESTAMP(6))
		ON DUPLICATE KEY UPDATE
		  status     = VALUES(status),
		  note       = VALUES(note),
		  source     = 'project',
		  project_id = VALUES(project_id),
		  locked     = 1,
		  updated_by = VALUES(updated_by),
		  updated_at = VALUES(updated_at)`
		if _, uerr := tx.ExecContext(ctx, up, employeeID, date, status, noteOrNil(note), projectID, actor); uerr != nil {
			return uerr
		}

		c, gerr := getDay(ctx, tx, employeeID, date, false)
		if gerr != nil {
			return gerr
		}
		if c == nil {
			return domainerr.ErrInternal("upserted but not found")
		}
		cur = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return old, cur, nil
}

// ListEditable: 指定日にグローバル経路で編集できる従業員の一覧。
// 除外集合（プロジェクト所有）は行ごとではなく1クエリで先に取り、
// その後に検索・ステータス絞り込みとページングを適用する。
// 除外集合と件数・ページがずれないよう、読み取りは同一Txでまとめる
func (s *Store) ListEditable(ctx context.Context, q ListQuery) ([]EditableRow, int64, error) {
	var (
		out   []EditableRow
		total int64
	)
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		owned, err := ownership.NewStore(tx).OwnedEmployeeIDs(ctx, q.Date)
		if err != nil {
			return err
		}

		var (
			buf    bytes.Buffer
			wheres []string
			args   []any
		)
		buf.WriteString(`
		SELECT e.employee_id, e.name, e.role, a.status, a.note, a.source, COALESCE(a.locked, 0)
		FROM employees e
		LEFT JOIN attendance_days a
		  ON a.employee_id = e.employee_id AND a.att_date = ?`)
		args = append(args, q.Date)

		wheres = append(wheres, "e.is_active = 1")
		if len(owned) > 0 {
			ph := make([]string, 0, len(owned))
			for id := range owned {
				ph = append(ph, "?")
				args = append(args, id)
			}
			wheres = append(wheres, "e.employee_id NOT IN ("+strings.Join(ph, ",")+")")
		}
		if q.Search != "" {
			wheres = append(wheres, "e.name LIKE ?")
			args = append(args, "%"+q.Search+"%")
		}
		if q.Status != "" {
			wheres = append(wheres, "a.status = ?")
			args = append(args, q.Status)
		}
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))

		// COUNT（ORDER BY より前までを再利用）
		cntQuery := "SELECT COUNT(*) FROM (" + buf.String() + ") t"
		if err := tx.QueryRowContext(ctx, cntQuery, args...).Scan(&total); err != nil {
			return err
		}

		limit := q.Limit
		if limit <= 0 {
			limit = DefaultPageLimit
		}
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}
		buf.WriteString(fmt.Sprintf(" ORDER BY e.employee_id ASC LIMIT %d OFFSET %d", limit, q.Offset))

		rows, err := tx.QueryContext(ctx, buf.String(), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r EditableRow
			var status, note, source sql.NullString
			var lockedInt int
			if err := rows.Scan(&r.EmployeeID, &r.Name, &r.Role, &status, &note, &source, &lockedInt); err != nil {
				return err
			}
			if status.Valid {
				v := status.String
				r.Status = &v
			}
			if note.Valid {
				v := note.String
				r.Note = &v
			}
			if source.Valid {
				v := source.String
				r.Source = &v
			}
			r.Locked = lockedInt != 0
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListRange: CSVエクスポート用。期間内の全勤怠を従業員名付きで返す
func (s *Store) ListRange(ctx context.Context, from, to string) ([]ExportRow, error) {
	const q = `
	SELECT a.employee_id, e.name, DATE_FORMAT(a.att_date, '%Y-%m-%d'), a.status, a.source, COALESCE(a.note, '')
	FROM attendance_days a
	JOIN employees e ON e.employee_id = a.employee_id
	WHERE a.att_date BETWEEN ? AND ?
	ORDER BY a.att_date ASC, a.employee_id ASC`

	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		if err := rows.Scan(&r.EmployeeID, &r.Name, &r.Date, &r.Status, &r.Source, &r.Note); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ===== helpers =====

func noteOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
