package entity

import (
	"gorm.io/gorm"
)

// Country drives cultural discovery; Code is ISO 3166-1 alpha-2.
type Country struct {
	gorm.Model
	Code        string `gorm:"size:2;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"not null" json:"name"`
	Flag        string `json:"flag"`
	Region      string `json:"region"`
	Description string `json:"description"`
	Featured    bool   `json:"featured"`

	Restaurants []Restaurant `json:"-"`
}
