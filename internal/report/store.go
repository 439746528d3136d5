package report

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CANIS-backend/internal/platform/db"
)

type ReportStore interface {
	ExecCreateReport(ctx context.Context, r *HandlerReport) error
	GetByULID(ctx context.Context, ulid string) (*HandlerReport, error)
	ListSections(ctx context.Context, reportID int64) ([]Section, error)
	UpdateSection(ctx context.Context, reportID int64, sectionType, content string) (int64, error)
	MarkSubmitted(ctx context.Context, reportID int64, at time.Time) (int64, error)
	MarkReviewed(ctx context.Context, reportID int64, status, reviewer string, notes *string) (int64, error)
	DeleteDraft(ctx context.Context, reportID int64) (int64, error)
	List(ctx context.Context, q ListQuery) ([]HandlerReport, error)

	GetItemContext(ctx context.Context, itemULID string) (*ItemContext, error)
	GetItemContextByID(ctx context.Context, itemID int64) (*ItemContext, error)
	GetProjectApprover(ctx context.Context, projectID int64) (*int64, error)
	ListReviewerEmployeeIDs(ctx context.Context, role string) ([]int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) ReportStore { return &Store{db: db} }

// ExecCreateReport: 日報本体と空の3セクション（health/care/behavior）を
// 同一Txで作る。セクションは未記入でも必ず存在させる
func (s *Store) ExecCreateReport(ctx context.Context, r *HandlerReport) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
		INSERT INTO handler_reports
		  (report_ulid, handler_id, dog_id, report_date, schedule_item_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, 'DRAFT', UTC_TIMESTAMP(6))`

		var itemID any
		if r.ScheduleItemID != nil {
			itemID = *r.ScheduleItemID
		}
		res, err := tx.ExecContext(ctx, q, r.ReportULID, r.HandlerID, r.DogID, r.Date, itemID)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		r.ReportID = id
		r.Status = StatusDraft

		const sq = `INSERT INTO report_sections (report_id, section_type, content) VALUES (?, ?, '')`
		for _, st := range sectionTypes {
			if _, err := tx.ExecContext(ctx, sq, id, st); err != nil {
				return err
			}
		}
		return nil
	})
}

const selectReportColumns = `
	SELECT report_id, report_ulid, handler_id, dog_id, DATE_FORMAT(report_date, '%Y-%m-%d'),
	       schedule_item_id, status, submitted_at, reviewed_by, review_notes, created_at
	FROM handler_reports`

func scanReport(scan func(dest ...any) error) (*HandlerReport, error) {
	var r HandlerReport
	var itemID sql.NullInt64
	var submittedAt sql.NullTime
	var reviewedBy, reviewNotes sql.NullString
	err := scan(&r.ReportID, &r.ReportULID, &r.HandlerID, &r.DogID, &r.Date,
		&itemID, &r.Status, &submittedAt, &reviewedBy, &reviewNotes, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if itemID.Valid {
		v := itemID.Int64
		r.ScheduleItemID = &v
	}
	if submittedAt.Valid {
		v := submittedAt.Time
		r.SubmittedAt = &v
	}
	if reviewedBy.Valid {
		v := reviewedBy.String
		r.ReviewedBy = &v
	}
	if reviewNotes.Valid {
		v := reviewNotes.String
		r.ReviewNotes = &v
	}
	return &r, nil
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*HandlerReport, error) {
	row := s.db.QueryRowContext(ctx, selectReportColumns+` WHERE report_ulid = ? LIMIT 1`, ulid)
	r, err := scanReport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListSections(ctx context.Context, reportID int64) ([]Section, error) {
	const q = `
	SELECT section_id, report_id, section_type, content
	FROM report_sections
	WHERE report_id = ?
	ORDER BY FIELD(section_type, 'health', 'care', 'behavior')`
	rows, err := s.db.QueryContext(ctx, q, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.SectionID, &sec.ReportID, &sec.Type, &sec.Content); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSection(ctx context.Context, reportID int64, sectionType, content string) (int64, error) {
	const q = `UPDATE report_sections SET content = ? WHERE report_id = ? AND section_type = ?`
	res, err := s.db.ExecContext(ctx, q, content, reportID, sectionType)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkSubmitted: DRAFT のときだけ遷移させる（0行更新 = すでに提出済み）
func (s *Store) MarkSubmitted(ctx context.Context, reportID int64, at time.Time) (int64, error) {
	const q = `
	UPDATE handler_reports
	SET status = 'SUBMITTED', submitted_at = ?
	WHERE report_id = ? AND status = 'DRAFT'`
	res, err := s.db.ExecContext(ctx, q, at, reportID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkReviewed: SUBMITTED のときだけ APPROVED / REJECTED へ遷移させる
func (s *Store) MarkReviewed(ctx context.Context, reportID int64, status, reviewer string, notes *string) (int64, error) {
	const q = `
	UPDATE handler_reports
	SET status = ?, reviewed_by = ?, review_notes = ?
	WHERE report_id = ? AND status = 'SUBMITTED'`
	var n any
	if notes != nil && *notes != "" {
		n = *notes
	}
	res, err := s.db.ExecContext(ctx, q, status, reviewer, n, reportID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteDraft(ctx context.Context, reportID int64) (int64, error) {
	var affected int64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM handler_reports WHERE report_id = ? AND status = 'DRAFT'`, reportID)
		if err != nil {
			return err
		}
		if affected, err = res.RowsAffected(); err != nil {
			return err
		}
		// 並行提出とのレースで本体が消せなかった場合、セクションは残す
		if affected == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM report_sections WHERE report_id = ?`, reportID)
		return err
	})
	return affected, err
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]HandlerReport, error) {
	var (
		buf    bytes.Buffer
		wheres []string
		args   []any
	)
	buf.WriteString(selectReportColumns)
	if q.HandlerID != nil {
		wheres = append(wheres, "handler_id = ?")
		args = append(args, *q.HandlerID)
	}
	if q.Status != "" {
		wheres = append(wheres, "status = ?")
		args = append(args, q.Status)
	}
	if q.From != "" {
		wheres = append(wheres, "report_date >= ?")
		args = append(args, q.From)
	}
	if q.To != "" {
		wheres = append(wheres, "report_date <= ?")
		args = append(args, q.To)
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
	buf.WriteString(fmt.Sprintf(" ORDER BY report_date DESC, report_id DESC LIMIT %d OFFSET %d", limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HandlerReport
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ===== lookups =====

const selectItemContext = `
	SELECT i.item_id, i.item_ulid, i.employee_id,
	       DATE_FORMAT(d.schedule_date, '%Y-%m-%d'), sh.end_time, d.project_id
	FROM daily_schedule_items i
	JOIN daily_schedules d ON d.schedule_id = i.schedule_id
	LEFT JOIN shifts sh ON sh.shift_id = i.shift_id`

// GetItemContext: 当番項目 + 親スケジュール日付 + シフト終業時刻をまとめて引く
func (s *Store) GetItemContext(ctx context.Context, itemULID string) (*ItemContext, error) {
	row := s.db.QueryRowContext(ctx, selectItemContext+` WHERE i.item_ulid = ? LIMIT 1`, itemULID)
	return scanItemContext(row)
}

func (s *Store) GetItemContextByID(ctx context.Context, itemID int64) (*ItemContext, error) {
	row := s.db.QueryRowContext(ctx, selectItemContext+` WHERE i.item_id = ? LIMIT 1`, itemID)
	return scanItemContext(row)
}

func scanItemContext(row *sql.Row) (*ItemContext, error) {
	var ic ItemContext
	var shiftEnd sql.NullString
	var projectID sql.NullInt64
	err := row.Scan(&ic.ItemID, &ic.ItemULID, &ic.EmployeeID, &ic.ScheduleDate, &shiftEnd, &projectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if shiftEnd.Valid {
		v := shiftEnd.String
		ic.ShiftEnd = &v
	}
	if projectID.Valid {
		v := projectID.Int64
		ic.ProjectID = &v
	}
	return &ic, nil
}

func (s *Store) GetProjectApprover(ctx context.Context, projectID int64) (*int64, error) {
	const q = `SELECT designated_approver_id FROM projects WHERE project_id = ? LIMIT 1`
	var approver sql.NullInt64
	err := s.db.QueryRowContext(ctx, q, projectID).Scan(&approver)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !approver.Valid {
		return nil, nil
	}
	v := approver.Int64
	return &v, nil
}

// ListReviewerEmployeeIDs: 予備レビュアープール（指定ロールの全アカウント）
func (s *Store) ListReviewerEmployeeIDs(ctx context.Context, role string) ([]int64, error) {
	const q = `
	SELECT DISTINCT employee_id FROM auth_accounts
	WHERE role = ? AND is_disabled = 0 AND employee_id <> 0`
	rows, err := s.db.QueryContext(ctx, q, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
