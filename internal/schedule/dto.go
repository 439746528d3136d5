package schedule

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type CreateScheduleRequest struct {
	Date      string  `json:"date" binding:"required"` // YYYY-MM-DD
	ProjectID *int64  `json:"project_id,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type AddItemRequest struct {
	EmployeeID int64  `json:"employee_id" binding:"required"`
	DogID      *int64 `json:"dog_id,omitempty"`
	ShiftID    *int64 `json:"shift_id,omitempty"`
}

type MarkAbsentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ReplaceRequest struct {
	ReplacementEmployeeID int64   `json:"replacement_employee_id" binding:"required"`
	Reason                string  `json:"reason" binding:"required"`
	Notes                 *string `json:"notes,omitempty"`
}

type AutoLockRequest struct {
	AsOf *string `json:"as_of,omitempty"` // 未指定なら今日
}

type ScheduleResponse struct {
	ScheduleULID string         `json:"schedule_ulid"`
	Date         string         `json:"date"`
	ProjectID    *int64         `json:"project_id,omitempty"`
	Status       string         `json:"status"`
	Notes        *string        `json:"notes,omitempty"`
	CreatedBy    string         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	LockedAt     *time.Time     `json:"locked_at,omitempty"`
	Items        []ItemResponse `json:"items,omitempty"`
}

type ItemResponse struct {
	ItemULID              string    `json:"item_ulid"`
	EmployeeID            int64     `json:"employee_id"`
	DogID                 *int64    `json:"dog_id,omitempty"`
	ShiftID               *int64    `json:"shift_id,omitempty"`
	Status                string    `json:"status"`
	AbsenceReason         *string   `json:"absence_reason,omitempty"`
	ReplacementEmployeeID *int64    `json:"replacement_employee_id,omitempty"`
	Notes                 *string   `json:"notes,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type ListQuery struct {
	Date      string
	ProjectID *int64
	Status    string
	Limit     int
	Offset    int
}
