package notification

import "time"

// notifications.type
const (
	TypeScheduleAssigned = "schedule_assigned"
	TypeScheduleReplaced = "schedule_replaced"
	TypeReportSubmitted  = "report_submitted"
	TypeReportApproved   = "report_approved"
	TypeReportRejected   = "report_rejected"
)

// related_type
const (
	RelatedSchedule     = "daily_schedule"
	RelatedScheduleItem = "daily_schedule_item"
	RelatedReport       = "handler_report"
)

// Notification は notifications テーブルの1行を表す。
// 作成後は既読フラグ以外変更されない。
type Notification struct {
	NotificationID   int64
	NotificationULID string
	UserID           int64 // employees.employee_id
	Type             string
	Title            string
	Message          string
	RelatedType      *string
	RelatedID        *string
	IsRead           bool
	CreatedAt        time.Time
}

func (n Notification) toDTO() Response {
	return Response{
		NotificationULID: n.NotificationULID,
		UserID:           n.UserID,
		Type:             n.Type,
		Title:            n.Title,
		Message:          n.Message,
		RelatedType:      n.RelatedType,
		RelatedID:        n.RelatedID,
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
	}
}
