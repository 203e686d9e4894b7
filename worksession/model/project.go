package model

import "time"

type Project struct {
	ID                string `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name              string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	JobTypeLabel      string `gorm:"column:job_type;type:varchar(100);not null" json:"jobTypeLabel"`
	RequiresElevation bool   `gorm:"column:requires_elevation;not null;default:false" json:"requiresElevation"`

	// legacy single total, split across the four elevations when the per-direction totals are absent
	TotalDrops      *int `gorm:"column:total_drops" json:"totalDrops"`
	TotalDropsNorth *int `gorm:"column:total_drops_north" json:"totalDropsNorth"`
	TotalDropsEast  *int `gorm:"column:total_drops_east" json:"totalDropsEast"`
	TotalDropsSouth *int `gorm:"column:total_drops_south" json:"totalDropsSouth"`
	TotalDropsWest  *int `gorm:"column:total_drops_west" json:"totalDropsWest"`

	// TotalFloors holds the suite count for in-suite jobs.
	TotalFloors *int `gorm:"column:total_floors" json:"totalFloors"`
	TotalStalls *int `gorm:"column:total_stalls" json:"totalStalls"`

	DailyDropTarget *int `gorm:"column:daily_drop_target" json:"dailyDropTarget"`
	SuitesPerDay    *int `gorm:"column:suites_per_day" json:"suitesPerDay"`
	StallsPerDay    *int `gorm:"column:stalls_per_day" json:"stallsPerDay"`

	DropsAdjustmentNorth int `gorm:"column:drops_adjustment_north;not null;default:0" json:"dropsAdjustmentNorth"`
	DropsAdjustmentEast  int `gorm:"column:drops_adjustment_east;not null;default:0" json:"dropsAdjustmentEast"`
	DropsAdjustmentSouth int `gorm:"column:drops_adjustment_south;not null;default:0" json:"dropsAdjustmentSouth"`
	DropsAdjustmentWest  int `gorm:"column:drops_adjustment_west;not null;default:0" json:"dropsAdjustmentWest"`

	OverallCompletionPercentage *int `gorm:"column:overall_completion_percentage" json:"overallCompletionPercentage"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) JobType() JobType {
	return DeriveJobType(p.JobTypeLabel, p.RequiresElevation)
}

func (p *Project) Adjustments() DirectionCounts {
	return DirectionCounts{
		North: p.DropsAdjustmentNorth,
		East:  p.DropsAdjustmentEast,
		South: p.DropsAdjustmentSouth,
		West:  p.DropsAdjustmentWest,
	}
}

func (p *Project) SetAdjustment(d Direction, v int) {
	switch d {
	case North:
		p.DropsAdjustmentNorth = v
	case East:
		p.DropsAdjustmentEast = v
	case South:
		p.DropsAdjustmentSouth = v
	case West:
		p.DropsAdjustmentWest = v
	}
}

// DirectionTotals returns the explicit per-direction totals and whether any of them is set.
func (p *Project) DirectionTotals() (DirectionCounts, bool) {
	var c DirectionCounts
	set := false
	for d, v := range map[Direction]*int{
		North: p.TotalDropsNorth,
		East:  p.TotalDropsEast,
		South: p.TotalDropsSouth,
		West:  p.TotalDropsWest,
	} {
		if v != nil {
			c.Set(d, *v)
			set = true
		}
	}
	return c, set
}
