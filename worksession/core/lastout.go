package core

import (
	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/model"
)

type LastOutResolution struct {
	RequiresProgressPrompt bool
	CurrentOverallProgress *int
}

// resolveLastOut runs after the closing session is marked ended, inside the same
// project lock. Only percentage-based projects prompt, and only when no other
// session on the project is still active.
func resolveLastOut(tx ProjectTx) (LastOutResolution, error) {
	project := tx.Project()
	if project.JobType() != model.JobTypePercentageBased {
		return LastOutResolution{}, nil
	}

	remaining, err := tx.CountActiveSessions()
	if err != nil {
		return LastOutResolution{}, err
	}
	if remaining > 0 {
		return LastOutResolution{}, nil
	}

	return LastOutResolution{
		RequiresProgressPrompt: true,
		CurrentOverallProgress: utils.Ptr(utils.Deref(project.OverallCompletionPercentage)),
	}, nil
}
