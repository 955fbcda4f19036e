package models

import (
	"time"

	"github.com/google/uuid"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// newID fills an empty primary key. Postgres and sqlite both get app-generated UUIDs.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
