package ownership

import (
	"context"
	"database/sql"

	"CANIS-backend/internal/platform/db"
)

// Store は DBTX を受けるので、Tx 内での再判定にもそのまま使える
type Store struct{ q db.DBTX }

func NewStore(q db.DBTX) *Store { return &Store{q: q} }

// ActiveCandidates: 従業員の有効アサインメント（親プロジェクトがACTIVE/PLANNED）を
// 区間フィルタなしでロードする。区間判定・同時一致の解決は Resolve 側で行う。
func (s *Store) ActiveCandidates(ctx context.Context, employeeID int64) ([]Candidate, error) {
	const q = `
	SELECT a.assignment_id, a.project_id, p.name, p.status,
	       DATE_FORMAT(p.start_date, '%Y-%m-%d'),
	       DATE_FORMAT(p.end_date, '%Y-%m-%d'),
	       DATE_FORMAT(a.assigned_from, '%Y-%m-%d'),
	       DATE_FORMAT(a.assigned_to, '%Y-%m-%d'),
	       a.created_at
	FROM project_assignments a
	JOIN projects p ON p.project_id = a.project_id
	WHERE a.employee_id = ?
	  AND a.is_active = 1
	  AND p.status IN ('ACTIVE', 'PLANNED')`

	rows, err := s.q.QueryContext(ctx, q, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var projEnd, assignedTo sql.NullString
		if err := rows.Scan(
			&c.AssignmentID, &c.ProjectID, &c.ProjectName, &c.ProjectStatus,
			&c.ProjectStart, &projEnd, &c.AssignedFrom, &assignedTo, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if projEnd.Valid {
			v := projEnd.String
			c.ProjectEnd = &v
		}
		if assignedTo.Valid {
			v := assignedTo.String
			c.AssignedTo = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Resolve: ロード + 純関数判定
func (s *Store) Resolve(ctx context.Context, employeeID int64, date string) (Result, error) {
	cands, err := s.ActiveCandidates(ctx, employeeID)
	if err != nil {
		return Result{}, err
	}
	return Resolve(date, cands), nil
}

// OwnedEmployeeIDs: 指定日にプロジェクト所有されている従業員IDの集合。
// 一覧画面の除外用に1クエリでまとめて取る（行ごとのResolve呼び出しはしない）。
func (s *Store) OwnedEmployeeIDs(ctx context.Context, date string) (map[int64]struct{}, error) {
	const q = `
	SELECT DISTINCT a.employee_id
	FROM project_assignments a
	JOIN projects p ON p.project_id = a.project_id
	WHERE a.employee_id IS NOT NULL
	  AND a.is_active = 1
	  AND p.status IN ('ACTIVE', 'PLANNED')
	  AND a.assigned_from <= ?
	  AND (a.assigned_to IS NULL OR a.assigned_to >= ?)
	  AND p.start_date <= ?
	  AND (p.end_date IS NULL OR p.end_date >= ?)`

	rows, err := s.q.QueryContext(ctx, q, date, date, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owned := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owned[id] = struct{}{}
	}
	return owned, rows.Err()
}
