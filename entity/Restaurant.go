package entity

import (
	"gorm.io/gorm"
)

type Restaurant struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Picture     string `json:"picture"`
	Cuisine     string `gorm:"index" json:"cuisine"`

	CountryID *uint    `json:"countryId"`
	Country   *Country `json:"country,omitempty"`

	OwnerID string `gorm:"size:36;index" json:"ownerId"`
	Owner   User   `gorm:"foreignKey:OwnerID" json:"-"`

	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	OpeningTime string   `json:"openingTime"` // "HH:MM"
	ClosingTime string   `json:"closingTime"`
	IsOpen      bool     `json:"isOpen"`
	IsFeatured  bool     `json:"isFeatured"`

	Rating      float64 `json:"rating"`
	ReviewCount int64   `json:"reviewCount"`

	Dishes  []Dish   `json:"dishes,omitempty"`
	Orders  []Order  `json:"-"`
	Reviews []Review `json:"-"`
}
