package entity

import (
	"time"

	"gorm.io/gorm"
)

const (
	VendorPending  = "pending"
	VendorApproved = "approved"
	VendorRejected = "rejected"
)

// Vendor is an application to open a restaurant; the restaurant is only created on approval.
type Vendor struct {
	gorm.Model
	BusinessName string   `gorm:"not null" json:"businessName"`
	ContactEmail string   `json:"contactEmail"`
	Phone        string   `json:"phone"`
	Address      string   `json:"address"`
	Description  string   `json:"description"`
	Picture      string   `json:"picture"`
	Cuisine      string   `json:"cuisine"`
	CountryCode  string   `gorm:"size:2" json:"countryCode"`
	OpeningTime  string   `json:"openingTime"`
	ClosingTime  string   `json:"closingTime"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`

	// at most one pending application per user
	OwnerUserID string `gorm:"size:36;index;uniqueIndex:idx_vendor_pending_owner,where:status = 'pending'" json:"ownerUserId"`
	OwnerUser   User   `gorm:"foreignKey:OwnerUserID" json:"-"`

	// pending / approved / rejected
	Status string `gorm:"not null;default:pending;index" json:"status"`

	ReviewedByID *string    `gorm:"size:36" json:"reviewedById,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	RejectReason *string    `json:"rejectReason,omitempty"`
	RestaurantID *uint      `json:"restaurantId,omitempty"`
}

func (Vendor) TableName() string { return "vendors" }
