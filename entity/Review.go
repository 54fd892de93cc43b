package entity

import (
	"time"

	"gorm.io/gorm"
)

type Review struct {
	gorm.Model
	Rating     int       `json:"rating"`
	Comments   string    `json:"comments"`
	ReviewDate time.Time `json:"reviewDate"`

	// one review per user and restaurant
	UserID       string     `gorm:"size:36;uniqueIndex:idx_review_user_restaurant" json:"userId"`
	User         User       `json:"-"`
	RestaurantID uint       `gorm:"uniqueIndex:idx_review_user_restaurant;index" json:"restaurantId"`
	Restaurant   Restaurant `json:"-"`
	OrderID      *uint      `json:"orderId,omitempty"`
	Order        *Order     `json:"-"`
}
