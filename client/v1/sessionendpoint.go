package v1

import (
	"context"
	"strconv"

	"ropeaccess.com/crewtrack/client/v1/common"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

type LocationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type StartSessionDTO struct {
	WorkDate string       `json:"workDate"` // yyyy-MM-dd
	Location *LocationDTO `json:"location,omitempty"`
}

type EndSessionDTO struct {
	Location                   *LocationDTO           `json:"location,omitempty"`
	DropsCompleted             *model.DirectionCounts `json:"dropsCompleted,omitempty"`
	PrimaryUnitsCompleted      *int                   `json:"primaryUnitsCompleted,omitempty"`
	ManualCompletionPercentage *int                   `json:"manualCompletionPercentage,omitempty"`
	ValidShortfallReasonCode   string                 `json:"validShortfallReasonCode,omitempty"`
	ShortfallReason            string                 `json:"shortfallReason,omitempty"`
}

type SessionEndpoint struct {
	transport *Transport
}

func (e *SessionEndpoint) Start(ctx context.Context, projectID string, dto *StartSessionDTO) (*core.StartResult, error) {
	var result common.APIResponse[*core.StartResult]
	if err := e.transport.Post(ctx, resourcePath("/api/v1/projects/%s/sessions", projectID), dto, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (e *SessionEndpoint) End(ctx context.Context, sessionID string, dto *EndSessionDTO) (*core.EndResult, error) {
	var result common.APIResponse[*core.EndResult]
	if err := e.transport.Post(ctx, resourcePath("/api/v1/sessions/%s/end", sessionID), dto, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Mine returns the caller's active session on the project, or nil.
func (e *SessionEndpoint) Mine(ctx context.Context, projectID string) (*model.WorkSession, error) {
	var result common.APIResponse[*model.WorkSession]
	if err := e.transport.Get(ctx, resourcePath("/api/v1/projects/%s/sessions/mine", projectID), nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// List filters by active state when active is non-nil.
func (e *SessionEndpoint) List(ctx context.Context, projectID string, active *bool, workDate string) ([]model.WorkSession, error) {
	query := map[string]string{"workDate": workDate}
	if active != nil {
		query["active"] = strconv.FormatBool(*active)
	}
	var result common.SearchAPIResponse[model.WorkSession]
	if err := e.transport.Get(ctx, resourcePath("/api/v1/projects/%s/sessions", projectID), query, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}
