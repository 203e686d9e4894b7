package core

import (
	"sort"

	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/model"
)

type SessionClassification struct {
	SessionID  string          `json:"sessionId"`
	WorkerID   string          `json:"workerId"`
	WorkDate   string          `json:"workDate"`
	Units      int             `json:"units"`
	Target     int             `json:"target"`
	Status     ShortfallStatus `json:"status"`
	ReasonCode string          `json:"reasonCode,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type ShortfallSummary struct {
	TargetMet     int `json:"targetMet"`
	ValidReason   int `json:"validReason"`
	BelowTarget   int `json:"belowTarget"`
	NotApplicable int `json:"notApplicable"`
}

func (s *ShortfallSummary) add(status ShortfallStatus) {
	switch status {
	case ShortfallTargetMet:
		s.TargetMet++
	case ShortfallValidReason:
		s.ValidReason++
	case ShortfallBelowTarget:
		s.BelowTarget++
	case ShortfallNotApplicable:
		s.NotApplicable++
	}
}

type ShortfallReport struct {
	ProjectID string                      `json:"projectId"`
	Sessions  []SessionClassification     `json:"sessions"`
	Summary   ShortfallSummary            `json:"summary"`
	ByWorker  map[string]ShortfallSummary `json:"byWorker"`
}

// ClassifySession labels one ended session.
func (p ShortfallPolicy) ClassifySession(project *model.Project, s *model.WorkSession) SessionClassification {
	units := SessionUnits(project, s)
	return SessionClassification{
		SessionID:  s.ID,
		WorkerID:   s.WorkerID,
		WorkDate:   s.WorkDate,
		Units:      units,
		Target:     p.Target(project),
		Status:     p.Classify(project, units, s.ReasonCode(), s.ShortfallReason),
		ReasonCode: s.ReasonCode(),
		Reason:     s.ShortfallReason,
	}
}

// SummarizeShortfalls classifies every ended session, ordered by work date then worker.
func (p ShortfallPolicy) SummarizeShortfalls(project *model.Project, sessions []model.WorkSession) ShortfallReport {
	ended := endedSessions(sessions)
	sort.SliceStable(ended, func(i, j int) bool {
		if ended[i].WorkDate != ended[j].WorkDate {
			return ended[i].WorkDate < ended[j].WorkDate
		}
		return ended[i].WorkerID < ended[j].WorkerID
	})

	report := ShortfallReport{
		ProjectID: project.ID,
		Sessions:  utils.Map(ended, func(s model.WorkSession) SessionClassification { return p.ClassifySession(project, &s) }),
		ByWorker:  make(map[string]ShortfallSummary),
	}
	for _, c := range report.Sessions {
		report.Summary.add(c.Status)
		w := report.ByWorker[c.WorkerID]
		w.add(c.Status)
		report.ByWorker[c.WorkerID] = w
	}
	return report
}
