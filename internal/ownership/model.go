package ownership

import "time"

const DateLayout = "2006-01-02"

// projects.status
const (
	ProjectPlanned   = "PLANNED"
	ProjectActive    = "ACTIVE"
	ProjectSuspended = "SUSPENDED"
	ProjectCompleted = "COMPLETED"
)

// Candidate: 所有判定の対象となる有効アサインメント1件。
// 親プロジェクトの区間・状態を含めてロードする（遅延参照はしない）。
// 日付はすべて "YYYY-MM-DD"。nil は open-ended（以後すべての日を含む）。
type Candidate struct {
	AssignmentID  int64
	ProjectID     int64
	ProjectName   string
	ProjectStatus string
	ProjectStart  string
	ProjectEnd    *string
	AssignedFrom  string
	AssignedTo    *string
	CreatedAt     time.Time
}

// Result: Resolve の判定結果
type Result struct {
	IsOwned      bool
	ProjectID    int64
	ProjectName  string
	AssignmentID int64
}
