package model

import (
	"time"

	"gorm.io/datatypes"
)

type ProgressEventKind string

const (
	ProgressEventAdjustment        ProgressEventKind = "adjustment"
	ProgressEventOverallPercentage ProgressEventKind = "overall_percentage"
)

// ProgressEvent is one immutable write to a shared project aggregate. The
// project's adjustment and percentage columns are a projection of these rows.
type ProgressEvent struct {
	ID            string            `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	ProjectID     string            `gorm:"column:project_id;type:varchar(36);not null;index;index:idx_event_sequence,priority:1" json:"projectId"`
	// Sequence orders the project's ledger. The store assigns it on append
	// while the project is locked.
	Sequence      int64             `gorm:"column:sequence;not null;default:0;index:idx_event_sequence,priority:2" json:"sequence"`
	Kind          ProgressEventKind `gorm:"column:kind;type:varchar(32);not null" json:"kind"`
	Direction     *Direction        `gorm:"column:direction;type:varchar(8)" json:"direction,omitempty"`
	Value         int               `gorm:"column:value;not null" json:"value"`
	PreviousValue *int              `gorm:"column:previous_value" json:"previousValue"`
	ActorID       string            `gorm:"column:actor_id;type:varchar(64);not null" json:"actorId"`
	SessionID     *string           `gorm:"column:session_id;type:varchar(36)" json:"sessionId,omitempty"`
	Details       datatypes.JSON    `gorm:"column:details" json:"details,omitempty"`
	CreatedAt     time.Time         `gorm:"column:created_at;type:timestamp(6);not null;<-:create" json:"createdAt"`
}

func (ProgressEvent) TableName() string {
	return "progress_events"
}
