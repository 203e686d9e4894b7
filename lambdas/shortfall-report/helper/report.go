package helper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

// ProjectReport is one project's classified sessions for the report date.
type ProjectReport struct {
	Schema  string
	Project model.Project
	Report  core.ShortfallReport
}

// LoadProjects returns the projects of one company schema that have a daily
// target, i.e. every project not tracked by percentage.
func LoadProjects(ctx context.Context, db *gorm.DB) ([]model.Project, error) {
	var projects []model.Project
	if err := db.WithContext(ctx).Order("name ASC, id ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	var targeted []model.Project
	for _, p := range projects {
		if p.JobType() != model.JobTypePercentageBased {
			targeted = append(targeted, p)
		}
	}
	return targeted, nil
}

// CollectReports classifies the sessions ended on workDate for each project.
// Projects with no sessions that day are left out.
func CollectReports(ctx context.Context, manager *core.Manager, schema string, projects []model.Project, workDate string) ([]ProjectReport, error) {
	var reports []ProjectReport
	for _, p := range projects {
		report, err := manager.Shortfalls(ctx, p.ID, core.SessionFilter{EndedOnly: true, WorkDate: workDate})
		if err != nil {
			return nil, fmt.Errorf("failed to classify project %s: %w", p.ID, err)
		}
		if len(report.Sessions) == 0 {
			continue
		}
		reports = append(reports, ProjectReport{Schema: schema, Project: p, Report: *report})
	}
	return reports, nil
}

// Totals sums the summaries of every report.
func Totals(reports []ProjectReport) core.ShortfallSummary {
	var total core.ShortfallSummary
	for _, r := range reports {
		total.TargetMet += r.Report.Summary.TargetMet
		total.ValidReason += r.Report.Summary.ValidReason
		total.BelowTarget += r.Report.Summary.BelowTarget
		total.NotApplicable += r.Report.Summary.NotApplicable
	}
	return total
}

// SummaryText is the Slack and email body. Sessions below target without a
// reason are listed by worker.
func SummaryText(reports []ProjectReport, workDate string) string {
	var sb strings.Builder
	total := Totals(reports)

	fmt.Fprintf(&sb, "Shortfall report for %s: %d project(s)\n", workDate, len(reports))
	fmt.Fprintf(&sb, "target met %d, valid reason %d, below target %d\n", total.TargetMet, total.ValidReason, total.BelowTarget)

	for _, r := range reports {
		if r.Report.Summary.BelowTarget == 0 {
			continue
		}
		var workers []string
		for worker, summary := range r.Report.ByWorker {
			if summary.BelowTarget > 0 {
				workers = append(workers, worker)
			}
		}
		sort.Strings(workers)
		fmt.Fprintf(&sb, "- %s/%s %s: %s\n", r.Schema, r.Project.ID, r.Project.Name, strings.Join(workers, ", "))
	}
	return sb.String()
}
