package v1

import (
	"context"

	"ropeaccess.com/crewtrack/client/v1/common"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

type ProgressUpdateDTO struct {
	CompletionPercentage *int   `json:"completionPercentage,omitempty"`
	Skip                 bool   `json:"skip,omitempty"`
	SessionID            string `json:"sessionId,omitempty"`
}

type AdjustmentsDTO struct {
	Adjustments []core.DirectionTarget `json:"adjustments"`
}

type ProjectEndpoint struct {
	transport *Transport
}

func (e *ProjectEndpoint) Progress(ctx context.Context, projectID string) (*core.ProjectProgress, error) {
	var result common.APIResponse[*core.ProjectProgress]
	if err := e.transport.Get(ctx, resourcePath("/api/v1/projects/%s/progress", projectID), nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (e *ProjectEndpoint) UpdateProgress(ctx context.Context, projectID string, dto *ProgressUpdateDTO) (*model.Project, error) {
	var result common.APIResponse[*model.Project]
	if err := e.transport.Put(ctx, resourcePath("/api/v1/projects/%s/progress", projectID), dto, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// SetAdjustments needs an admin token.
func (e *ProjectEndpoint) SetAdjustments(ctx context.Context, projectID string, targets ...core.DirectionTarget) (*core.ProjectProgress, error) {
	var result common.APIResponse[*core.ProjectProgress]
	if err := e.transport.Put(ctx, resourcePath("/api/v1/projects/%s/adjustments", projectID), &AdjustmentsDTO{Adjustments: targets}, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (e *ProjectEndpoint) Events(ctx context.Context, projectID string) ([]model.ProgressEvent, error) {
	var result common.SearchAPIResponse[model.ProgressEvent]
	if err := e.transport.Get(ctx, resourcePath("/api/v1/projects/%s/events", projectID), nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (e *ProjectEndpoint) Shortfalls(ctx context.Context, projectID, from, to string) (*core.ShortfallReport, error) {
	var result common.APIResponse[*core.ShortfallReport]
	if err := e.transport.Get(ctx, resourcePath("/api/v1/projects/%s/shortfalls", projectID), map[string]string{"from": from, "to": to}, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (e *ProjectEndpoint) ShortfallReasons(ctx context.Context) ([]model.ShortfallReason, error) {
	var result common.APIResponse[[]model.ShortfallReason]
	if err := e.transport.Get(ctx, "/api/v1/shortfall-reasons", nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}
