package entity

import (
	"gorm.io/gorm"
)

type Dish struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"` // minor units
	Picture     string `json:"picture"`

	RestaurantID uint       `gorm:"index" json:"restaurantId"`
	Restaurant   Restaurant `json:"-"` // preload เมื่อจำเป็น

	// country the dish comes from; may differ from the restaurant's
	CountryID *uint    `json:"countryId"`
	Country   *Country `json:"-"`

	IsVegetarian bool `json:"isVegetarian"`
	IsSpicy      bool `json:"isSpicy"`
	IsAvailable  bool `json:"isAvailable"`
	IsFeatured   bool `json:"isFeatured"`

	OrderItems []OrderItem `json:"-"`
}
