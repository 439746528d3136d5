package report

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type CreateReportRequest struct {
	DogID            int64   `json:"dog_id" binding:"required"`
	Date             string  `json:"date" binding:"required"` // YYYY-MM-DD
	ScheduleItemULID *string `json:"schedule_item_ulid,omitempty"`
}

type UpdateSectionRequest struct {
	Content string `json:"content"`
}

type ReviewRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type Response struct {
	ReportULID     string            `json:"report_ulid"`
	HandlerID      int64             `json:"handler_id"`
	DogID          int64             `json:"dog_id"`
	Date           string            `json:"date"`
	ScheduleItemID *int64            `json:"schedule_item_id,omitempty"`
	Status         string            `json:"status"`
	SubmittedAt    *time.Time        `json:"submitted_at,omitempty"`
	ReviewedBy     *string           `json:"reviewed_by,omitempty"`
	ReviewNotes    *string           `json:"review_notes,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Sections       []SectionResponse `json:"sections,omitempty"`
}

type SectionResponse struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type ListQuery struct {
	HandlerID *int64
	Status    string
	From      string
	To        string
	Limit     int
	Offset    int
}
