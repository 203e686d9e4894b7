package model

import "time"

const ActiveSlotOpen = "open"

type WorkSession struct {
	ID        string `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	ProjectID string `gorm:"column:project_id;type:varchar(36);not null;index;uniqueIndex:idx_active_session,priority:1" json:"projectId"`
	WorkerID  string `gorm:"column:worker_id;type:varchar(64);not null;index;uniqueIndex:idx_active_session,priority:2" json:"workerId"`
	// WorkDate is the worker's local calendar date at start (yyyy-MM-dd).
	WorkDate  string     `gorm:"column:work_date;type:varchar(10);not null;index" json:"workDate"`
	StartTime time.Time  `gorm:"column:start_time;not null" json:"startTime"`
	EndTime   *time.Time `gorm:"column:end_time" json:"endTime"`

	// ActiveSlot is non-null only while the session is active. Together with the
	// unique index it keeps one active session per project and worker.
	ActiveSlot *string `gorm:"column:active_slot;type:varchar(8);uniqueIndex:idx_active_session,priority:3" json:"-"`

	StartLatitude  *float64 `gorm:"column:start_latitude" json:"startLatitude"`
	StartLongitude *float64 `gorm:"column:start_longitude" json:"startLongitude"`
	EndLatitude    *float64 `gorm:"column:end_latitude" json:"endLatitude"`
	EndLongitude   *float64 `gorm:"column:end_longitude" json:"endLongitude"`

	DropsCompletedNorth int `gorm:"column:drops_completed_north;not null;default:0" json:"dropsCompletedNorth"`
	DropsCompletedEast  int `gorm:"column:drops_completed_east;not null;default:0" json:"dropsCompletedEast"`
	DropsCompletedSouth int `gorm:"column:drops_completed_south;not null;default:0" json:"dropsCompletedSouth"`
	DropsCompletedWest  int `gorm:"column:drops_completed_west;not null;default:0" json:"dropsCompletedWest"`

	// PrimaryUnitsCompleted is the suite or stall count for unit job types.
	PrimaryUnitsCompleted *int `gorm:"column:primary_units_completed" json:"primaryUnitsCompleted"`

	ManualCompletionPercentage *int `gorm:"column:manual_completion_percentage" json:"manualCompletionPercentage"`

	ValidShortfallReasonCode *string `gorm:"column:valid_shortfall_reason_code;type:varchar(64)" json:"validShortfallReasonCode"`
	ShortfallReason          string  `gorm:"column:shortfall_reason;type:text" json:"shortfallReason"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (WorkSession) TableName() string {
	return "work_sessions"
}

func (s *WorkSession) Active() bool {
	return s.EndTime == nil
}

func (s *WorkSession) Drops() DirectionCounts {
	return DirectionCounts{
		North: s.DropsCompletedNorth,
		East:  s.DropsCompletedEast,
		South: s.DropsCompletedSouth,
		West:  s.DropsCompletedWest,
	}
}

func (s *WorkSession) SetDrops(c DirectionCounts) {
	s.DropsCompletedNorth = c.North
	s.DropsCompletedEast = c.East
	s.DropsCompletedSouth = c.South
	s.DropsCompletedWest = c.West
}

// PrimaryUnits returns the suite/stall count, reading the North column for rows
// written before PrimaryUnitsCompleted existed.
func (s *WorkSession) PrimaryUnits() int {
	if s.PrimaryUnitsCompleted != nil {
		return *s.PrimaryUnitsCompleted
	}
	return s.DropsCompletedNorth
}

func (s *WorkSession) ReasonCode() string {
	if s.ValidShortfallReasonCode == nil {
		return ""
	}
	return *s.ValidShortfallReasonCode
}
