package db

import (
	"time"

	"gorm.io/gorm"
)

// BehaviorRecord accumulates observations of one recurring user behavior.
// Only behaviors are persisted; detected tasks and their schedules are not.
type BehaviorRecord struct {
	gorm.Model
	Pattern       string     `json:"pattern" gorm:"uniqueIndex"`
	Frequency     int        `json:"frequency"`                  // total observations
	LastExecuted  *time.Time `json:"last_executed" gorm:"index"` // last time the user performed it
	LastSuggested *time.Time `json:"last_suggested"`             // last time a task was suggested for it
}
