package ownership

// Resolve: 従業員の指定日の勤怠をどのアサインメントが所有するか判定する。
// 副作用なしの純関数。候補のうち
//   - 親プロジェクトが ACTIVE または PLANNED
//   - アサインメント区間が date を含む（assigned_to なし = 無期限）
//   - プロジェクト区間が date を含む（end_date なし = 無期限）
//
// を満たすものから、created_at が最も古いものを選ぶ。
// 同時刻の場合は assignment_id の小さい方（決定的であること優先）。
func Resolve(date string, cands []Candidate) Result {
	var best *Candidate
	for i := range cands {
		c := &cands[i]
		if !covers(c, date) {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		if c.CreatedAt.Before(best.CreatedAt) ||
			(c.CreatedAt.Equal(best.CreatedAt) && c.AssignmentID < best.AssignmentID) {
			best = c
		}
	}
	if best == nil {
		return Result{}
	}
	return Result{
		IsOwned:      true,
		ProjectID:    best.ProjectID,
		ProjectName:  best.ProjectName,
		AssignmentID: best.AssignmentID,
	}
}

// covers: 区間判定。日付は "YYYY-MM-DD" なので文字列比較で順序が保てる
func covers(c *Candidate, date string) bool {
	if c.ProjectStatus != ProjectActive && c.ProjectStatus != ProjectPlanned {
		return false
	}
	if date < c.AssignedFrom {
		return false
	}
	if c.AssignedTo != nil && *c.AssignedTo != "" && date > *c.AssignedTo {
		return false
	}
	if date < c.ProjectStart {
		return false
	}
	if c.ProjectEnd != nil && *c.ProjectEnd != "" && date > *c.ProjectEnd {
		return false
	}
	return true
}
