package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

// ParseTargets reads "north=12 east=4" style arguments.
func ParseTargets(args []string) ([]core.DirectionTarget, error) {
	var targets []core.DirectionTarget
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected direction=count, got %q", arg)
		}
		d := model.Direction(strings.ToLower(strings.TrimSpace(name)))
		if !d.Valid() {
			return nil, fmt.Errorf("unknown direction %q", name)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid count for %s: %w", d, err)
		}
		targets = append(targets, core.DirectionTarget{Direction: d, DesiredAbsolute: n})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one direction=count is required")
	}
	return targets, nil
}

// ParseProjectsCSV reads projects from a CSV whose first row names the
// columns. Unknown columns are ignored and blank cells stay unset.
func ParseProjectsCSV(r io.Reader) ([]model.Project, error) {
	rows, err := utils.ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := utils.Map(rows[0], func(h string) string { return strings.ToLower(strings.TrimSpace(h)) })
	var projects []model.Project
	for i, row := range rows[1:] {
		var p model.Project
		for col, value := range row {
			if col >= len(header) {
				break
			}
			if err := setProjectField(&p, header[col], strings.TrimSpace(value)); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Name == "" || p.JobTypeLabel == "" {
			return nil, fmt.Errorf("row %d: name and job_type are required", i+2)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// importedColumns are the project columns a CSV import may overwrite. The
// adjustments and overall percentage only change through the progress ledger.
var importedColumns = []string{
	"name",
	"job_type",
	"requires_elevation",
	"total_drops",
	"total_drops_north",
	"total_drops_east",
	"total_drops_south",
	"total_drops_west",
	"total_floors",
	"total_stalls",
	"daily_drop_target",
	"suites_per_day",
	"stalls_per_day",
	"updated_at",
}

// UpsertProjects inserts new projects and refreshes the imported columns of
// existing ones.
func UpsertProjects(db *gorm.DB, projects []model.Project) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(importedColumns),
	}).Create(&projects)
}

func setProjectField(p *model.Project, column, value string) error {
	if value == "" {
		return nil
	}

	counts := map[string]**int{
		"total_drops":       &p.TotalDrops,
		"total_drops_north": &p.TotalDropsNorth,
		"total_drops_east":  &p.TotalDropsEast,
		"total_drops_south": &p.TotalDropsSouth,
		"total_drops_west":  &p.TotalDropsWest,
		"total_floors":      &p.TotalFloors,
		"total_stalls":      &p.TotalStalls,
		"daily_drop_target": &p.DailyDropTarget,
		"suites_per_day":    &p.SuitesPerDay,
		"stalls_per_day":    &p.StallsPerDay,
	}

	switch column {
	case "id":
		p.ID = value
	case "name":
		p.Name = value
	case "job_type":
		p.JobTypeLabel = value
	case "requires_elevation":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("requires_elevation: %w", err)
		}
		p.RequiresElevation = b
	default:
		field, ok := counts[column]
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", column, value)
		}
		*field = utils.Ptr(n)
	}
	return nil
}
