package entity

import (
	"time"

	"gorm.io/gorm"
)

type PushToken struct {
	gorm.Model
	UserID     string    `gorm:"size:36;index;not null" json:"userId"`
	Token      string    `gorm:"uniqueIndex;not null" json:"token"`
	Platform   string    `json:"platform"` // ios / android
	LastSeenAt time.Time `json:"lastSeenAt"`
}
