package entity

import (
	"gorm.io/gorm"
)

type Cart struct {
	gorm.Model
	UserID       string     `json:"userId" gorm:"size:36;uniqueIndex"`
	User         User       `json:"-"`
	RestaurantID uint       `json:"restaurantId"` // 0 = not locked to a restaurant
	Restaurant   Restaurant `json:"-"`

	Items []CartItem `json:"items" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
