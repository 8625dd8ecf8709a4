package domain

import (
	"math"
	"time"
)

// Timesheet statuses. pending → active → completed → {approved | rejected};
// approved and rejected are terminal.
const (
	TimesheetPending   = "pending"
	TimesheetActive    = "active"
	TimesheetCompleted = "completed"
	TimesheetApproved  = "approved"
	TimesheetRejected  = "rejected"
)

// Break kinds
const (
	BreakTypeBreak = "break"
	BreakTypeLunch = "lunch"
	BreakTypeOther = "other"
)

// OvertimeThresholdHours 单班次加班阈值
const OvertimeThresholdHours = 8.0

// LocationSnapshot is the captured clock-in/clock-out position, stored as
// JSONB on the timesheet row.
type LocationSnapshot struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Timesheet 护工班次工时单（对应 timesheets 表）
// At most one timesheet per (user, client) may be in active status at a time.
// TotalHours/OvertimeHours are always recomputed, never hand-edited.
type Timesheet struct {
	TimesheetID string `db:"timesheet_id"` // UUID, PRIMARY KEY
	UserID      string `db:"user_id"`      // UUID, NOT NULL
	ClientID    string `db:"client_id"`    // UUID, NOT NULL

	WorkDate time.Time `db:"work_date"` // DATE, NOT NULL

	ClockInAt        *time.Time        `db:"clock_in_at"`
	ClockOutAt       *time.Time        `db:"clock_out_at"`
	ClockInLocation  *LocationSnapshot `db:"clock_in_location"`  // JSONB
	ClockOutLocation *LocationSnapshot `db:"clock_out_location"` // JSONB

	TotalHours    float64 `db:"total_hours"`
	OvertimeHours float64 `db:"overtime_hours"`

	Status string `db:"status"`
	Notes  string `db:"notes"`

	ApprovedBy *string    `db:"approved_by"`
	ApprovedAt *time.Time `db:"approved_at"`

	Breaks []*BreakInterval `db:"-"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Terminal reports whether the timesheet has reached a final approval state.
func (t *Timesheet) Terminal() bool {
	return t.Status == TimesheetApproved || t.Status == TimesheetRejected
}

// RecomputeHours derives TotalHours and OvertimeHours from the clock span
// minus closed break durations. Open breaks contribute nothing until closed.
// No-op unless both clock times are set.
func (t *Timesheet) RecomputeHours() {
	if t.ClockInAt == nil || t.ClockOutAt == nil {
		return
	}
	workSeconds := t.ClockOutAt.Sub(*t.ClockInAt).Seconds()
	for _, b := range t.Breaks {
		if b.EndTime != nil {
			workSeconds -= b.EndTime.Sub(b.StartTime).Seconds()
		}
	}
	t.TotalHours = round2(workSeconds / 3600.0)
	if t.TotalHours > OvertimeThresholdHours {
		t.OvertimeHours = round2(t.TotalHours - OvertimeThresholdHours)
	} else {
		t.OvertimeHours = 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BreakInterval 休息区间（对应 break_times 表）
// Owned exclusively by its timesheet; cascade-deleted with it.
type BreakInterval struct {
	BreakID     string `db:"break_id"`     // UUID, PRIMARY KEY
	TimesheetID string `db:"timesheet_id"` // UUID, NOT NULL

	StartTime time.Time  `db:"start_time"`
	EndTime   *time.Time `db:"end_time"` // nullable while the break is open

	Kind            string `db:"break_type"` // break | lunch | other
	DurationMinutes int    `db:"duration_minutes"`
	Notes           string `db:"notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Close sets the end time and derives DurationMinutes (rounded minutes).
func (b *BreakInterval) Close(end time.Time) {
	b.EndTime = &end
	b.DurationMinutes = int(math.Round(end.Sub(b.StartTime).Minutes()))
}

// TimesheetFilter narrows List queries.
type TimesheetFilter struct {
	UserID    string
	ClientID  string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}
