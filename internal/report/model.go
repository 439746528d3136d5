package report

import "time"

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// handler_reports.status
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
)

// report_sections.section_type
const (
	SectionHealth   = "health"
	SectionCare     = "care"
	SectionBehavior = "behavior"
)

var sectionTypes = []string{SectionHealth, SectionCare, SectionBehavior}

// HandlerReport は handler_reports テーブルの1行を表す。
// DRAFT -> SUBMITTED -> APPROVED / REJECTED。APPROVED / REJECTED は終端。
type HandlerReport struct {
	ReportID       int64
	ReportULID     string
	HandlerID      int64
	DogID          int64
	Date           string // YYYY-MM-DD
	ScheduleItemID *int64
	Status         string
	SubmittedAt    *time.Time
	ReviewedBy     *string
	ReviewNotes    *string
	CreatedAt      time.Time
}

// Section は report_sections の1行。作成時に3種とも空で作られる
type Section struct {
	SectionID int64
	ReportID  int64
	Type      string
	Content   string
}

// ItemContext: 提出時間窓の判定と通知先解決に必要な、
// 当番項目まわりの情報をまとめてロードしたもの
type ItemContext struct {
	ItemID       int64
	ItemULID     string
	EmployeeID   int64
	ScheduleDate string  // YYYY-MM-DD
	ShiftEnd     *string // "HH:MM:SS"、シフトなし/終業未定義なら nil
	ProjectID    *int64
}

func (r HandlerReport) toDTO() Response {
	return Response{
		ReportULID:     r.ReportULID,
		HandlerID:      r.HandlerID,
		DogID:          r.DogID,
		Date:           r.Date,
		ScheduleItemID: r.ScheduleItemID,
		Status:         r.Status,
		SubmittedAt:    r.SubmittedAt,
		ReviewedBy:     r.ReviewedBy,
		ReviewNotes:    r.ReviewNotes,
		CreatedAt:      r.CreatedAt,
	}
}
