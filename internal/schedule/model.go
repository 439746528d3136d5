package schedule

import (
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// daily_schedules.status
const (
	StatusOpen   = "OPEN"
	StatusLocked = "LOCKED"
)

// daily_schedule_items.status
const (
	ItemPlanned  = "PLANNED"
	ItemPresent  = "PRESENT"
	ItemAbsent   = "ABSENT"
	ItemReplaced = "REPLACED"
)

// DailySchedule は daily_schedules テーブルの1行を表す。
// (schedule_date, project_key) でUNIQUE。project_key は project_id の文字列表現で、
// プロジェクトなしは空文字（NULL同士はUNIQUEが効かないため）。
type DailySchedule struct {
	ScheduleID   int64
	ScheduleULID string
	Date         string // YYYY-MM-DD
	ProjectID    *int64
	Status       string
	Notes        *string
	CreatedBy    string
	CreatedAt    time.Time
	LockedAt     *time.Time
}

func (s DailySchedule) projectKey() string {
	if s.ProjectID == nil {
		return ""
	}
	return strconv.FormatInt(*s.ProjectID, 10)
}

// Item は daily_schedule_items テーブルの1行を表す。
// REPLACED のときだけ replacement_employee_id と absence_reason を持つ。
type Item struct {
	ItemID                int64
	ItemULID              string
	ScheduleID            int64
	EmployeeID            int64
	DogID                 *int64
	ShiftID               *int64
	Status                string
	AbsenceReason         *string
	ReplacementEmployeeID *int64
	Notes                 *string
	UpdatedAt             time.Time
}

// Shift は shifts テーブルの1行（参照のみ）。時刻は "HH:MM:SS"
type Shift struct {
	ShiftID   int64
	Name      string
	StartTime *string
	EndTime   *string
}

func (s DailySchedule) toDTO() ScheduleResponse {
	return ScheduleResponse{
		ScheduleULID: s.ScheduleULID,
		Date:         s.Date,
		ProjectID:    s.ProjectID,
		Status:       s.Status,
		Notes:        s.Notes,
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
		LockedAt:     s.LockedAt,
	}
}

func (it Item) toDTO() ItemResponse {
	return ItemResponse{
		ItemULID:              it.ItemULID,
		EmployeeID:            it.EmployeeID,
		DogID:                 it.DogID,
		ShiftID:               it.ShiftID,
		Status:                it.Status,
		AbsenceReason:         it.AbsenceReason,
		ReplacementEmployeeID: it.ReplacementEmployeeID,
		Notes:                 it.Notes,
		UpdatedAt:             it.UpdatedAt,
	}
}
