package entity

import (
	"gorm.io/gorm"
)

type Order struct {
	gorm.Model
	OrderCode string `gorm:"size:16;uniqueIndex;not null" json:"orderCode"` // HP-YY-XXXXXXX

	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	DeliveryFee int64 `json:"deliveryFee"`
	Total       int64 `json:"total"`

	Address string `json:"address"`
	Note    string `json:"note"`

	UserID string `gorm:"size:36;index" json:"userId"`
	User   User   `json:"-"`

	RestaurantID uint       `gorm:"index" json:"restaurantId"`
	Restaurant   Restaurant `json:"-"`

	OrderStatusID uint        `json:"orderStatusId"`
	OrderStatus   OrderStatus `json:"orderStatus"`

	PromotionID *uint      `json:"promotionId,omitempty"`
	Promotion   *Promotion `json:"-"`

	// preload แค่ตอน detail
	OrderItems []OrderItem `json:"items,omitempty"`
	Reviews    []Review    `json:"-"`
}
