package entity

import (
	"time"

	"gorm.io/gorm"
)

const (
	DiscountAmount       = "amount"
	DiscountPercent      = "percent"
	DiscountFreeDelivery = "free_delivery"
)

type Promotion struct {
	gorm.Model
	PromoCode    string     `gorm:"size:50;uniqueIndex;not null" json:"promoCode"`
	Title        string     `json:"title"`
	PromoDetail  string     `json:"promoDetail"`
	DiscountType string     `gorm:"size:20;not null" json:"discountType"`
	Value        int64      `json:"value"` // minor units for amount, 1-100 for percent
	MinOrder     int64      `json:"minOrder"`
	StartAt      *time.Time `json:"startAt,omitempty"`
	EndAt        *time.Time `json:"endAt,omitempty"`

	CreatedByID string `gorm:"size:36" json:"createdById"`
}

// ActiveAt reports whether now falls inside the promotion window.
func (p *Promotion) ActiveAt(now time.Time) bool {
	if p.StartAt != nil && now.Before(*p.StartAt) {
		return false
	}
	if p.EndAt != nil && now.After(*p.EndAt) {
		return false
	}
	return true
}
