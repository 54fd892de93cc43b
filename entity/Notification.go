package entity

import (
	"time"

	"gorm.io/gorm"
)

// Notification is one inbox row; Data holds the JSON payload data.
type Notification struct {
	gorm.Model
	UserID string     `gorm:"size:36;index;not null" json:"userId"`
	Type   string     `gorm:"size:32;not null" json:"type"`
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	Data   string     `json:"-"`
	Target string     `json:"target"`
	ReadAt *time.Time `json:"readAt,omitempty"`
}
