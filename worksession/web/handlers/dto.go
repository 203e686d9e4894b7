package handlers

import (
	web "ropeaccess.com/crewtrack/web/common"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

type LocationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l *LocationDTO) toLocation() *core.Location {
	if l == nil {
		return nil
	}
	return &core.Location{Latitude: l.Latitude, Longitude: l.Longitude}
}

type StartSessionDTO struct {
	WorkDate *web.DateOnly `json:"workDate" binding:"required"`
	Location *LocationDTO  `json:"location"`
}

type DropsDTO struct {
	North int `json:"north"`
	East  int `json:"east"`
	South int `json:"south"`
	West  int `json:"west"`
}

type EndSessionDTO struct {
	Location                   *LocationDTO `json:"location"`
	DropsCompleted             *DropsDTO    `json:"dropsCompleted"`
	PrimaryUnitsCompleted      *int         `json:"primaryUnitsCompleted"`
	ManualCompletionPercentage *int         `json:"manualCompletionPercentage"`
	ValidShortfallReasonCode   string       `json:"validShortfallReasonCode"`
	ShortfallReason            string       `json:"shortfallReason"`
}

func (dto *EndSessionDTO) toInput(workerID string) core.EndInput {
	in := core.EndInput{
		WorkerID:                   workerID,
		Location:                   dto.Location.toLocation(),
		PrimaryUnits:               dto.PrimaryUnitsCompleted,
		ManualCompletionPercentage: dto.ManualCompletionPercentage,
		ShortfallReasonCode:        dto.ValidShortfallReasonCode,
		ShortfallReason:            dto.ShortfallReason,
	}
	if d := dto.DropsCompleted; d != nil {
		in.Drops = &model.DirectionCounts{North: d.North, East: d.East, South: d.South, West: d.West}
	}
	return in
}

type ProgressUpdateDTO struct {
	CompletionPercentage *int   `json:"completionPercentage"`
	Skip                 bool   `json:"skip"`
	SessionID            string `json:"sessionId"`
}

type DirectionTargetDTO struct {
	Direction       string `json:"direction" binding:"required,direction"`
	DesiredAbsolute *int   `json:"desiredAbsolute" binding:"required"`
}

type AdjustmentsDTO struct {
	Adjustments []DirectionTargetDTO `json:"adjustments" binding:"required,min=1,dive"`
}

func (dto *AdjustmentsDTO) toTargets() []core.DirectionTarget {
	targets := make([]core.DirectionTarget, 0, len(dto.Adjustments))
	for _, a := range dto.Adjustments {
		targets = append(targets, core.DirectionTarget{Direction: model.Direction(a.Direction), DesiredAbsolute: *a.DesiredAbsolute})
	}
	return targets
}

type SessionQuery struct {
	Active   *bool  `form:"active"`
	WorkDate string `form:"workDate" binding:"omitempty,workdate"`
}

type ShortfallQuery struct {
	From string `form:"from" binding:"omitempty,workdate"`
	To   string `form:"to" binding:"omitempty,workdate"`
}
