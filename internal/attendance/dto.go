package attendance

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type SetGlobalRequest struct {
	EmployeeID int64   `json:"employee_id" binding:"required"`
	Date       string  `json:"date" binding:"required"` // "YYYY-MM-DD" or "today"
	Status     string  `json:"status" binding:"required"`
	Note       *string `json:"note,omitempty"`
}

type Response struct {
	EmployeeID int64     `json:"employee_id"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	Note       *string   `json:"note,omitempty"`
	Source     string    `json:"source"`
	ProjectID  *int64    `json:"project_id,omitempty"`
	Locked     bool      `json:"locked"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListEditable 用の検索条件
type ListQuery struct {
	Date   string // 必須
	Search string // 氏名の部分一致
	Status string // 当日ステータスで絞る
	Limit  int
	Offset int
}

// EditableRow: 指定日にグローバル経路で編集可能な従業員1名分。
// 勤怠未入力なら Status 以下は nil。
type EditableRow struct {
	EmployeeID int64   `json:"employee_id"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Status     *string `json:"status,omitempty"`
	Note       *string `json:"note,omitempty"`
	Source     *string `json:"source,omitempty"`
	Locked     bool    `json:"locked"`
}

// ExportRow: CSVエクスポート1行分
type ExportRow struct {
	EmployeeID int64
	Name       string
	Date       string
	Status     string
	Source     string
	Note       string
}
