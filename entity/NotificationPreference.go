package entity

import (
	"time"
)

// NotificationPreference keeps one switch per notification type.
// order_status has no switch: order updates are always delivered.
type NotificationPreference struct {
	UserID            string    `gorm:"primaryKey;size:36" json:"userId"`
	CulturalDiscovery bool      `json:"culturalDiscovery"`
	NewRestaurant     bool      `json:"newRestaurant"`
	FeaturedDish      bool      `json:"featuredDish"`
	Promotional       bool      `json:"promotional"`
	Loyalty           bool      `json:"loyalty"`
	Seasonal          bool      `json:"seasonal"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func DefaultNotificationPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:            userID,
		CulturalDiscovery: true,
		NewRestaurant:     true,
		FeaturedDish:      true,
		Promotional:       true,
		Loyalty:           true,
		Seasonal:          true,
	}
}
