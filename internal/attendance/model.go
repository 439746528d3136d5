package attendance

import "time"

const DateLayout = "2006-01-02"

// attendance_days.source
const (
	SourceGlobal  = "global"
	SourceProject = "project"
)

// attendance_days.status
const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
	StatusLate    = "LATE"
	StatusLeave   = "LEAVE"
	StatusSick    = "SICK"
)

var validStatuses = map[string]struct{}{
	StatusPresent: {},
	StatusAbsent:  {},
	StatusLate:    {},
	StatusLeave:   {},
	StatusSick:    {},
}

// AttendanceDay は attendance_days テーブルの1行を表す。
// (employee_id, att_date) でUNIQUE。source=project の行は locked=1 で
// グローバル経路からは編集不可。
type AttendanceDay struct {
	AttendanceID int64
	EmployeeID   int64
	Date         string // YYYY-MM-DD
	Status       string
	Note         *string
	Source       string
	ProjectID    *int64
	Locked       bool
	UpdatedBy    string
	UpdatedAt    time.Time
}

func (a AttendanceDay) toDTO() Response {
	return Response{
		EmployeeID: a.EmployeeID,
		Date:       a.Date,
		Status:     a.Status,
		Note:       a.Note,
		Source:     a.Source,
		ProjectID:  a.ProjectID,
		Locked:     a.Locked,
		UpdatedAt:  a.UpdatedAt,
	}
}
