package entity

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
)

// User mirrors the auth provider's user; ID is the provider's UUID (token "sub").
type User struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Role        string `gorm:"not null;default:customer" json:"role"`

	HomeCountryCode     string   `gorm:"size:2" json:"homeCountryCode"`
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	OnboardingCompleted bool     `json:"onboardingCompleted"`
	LoyaltyPoints       int64    `json:"loyaltyPoints"`

	// Relations: preload เฉพาะตอนจำเป็น
	RestaurantsOwned []Restaurant `gorm:"foreignKey:OwnerID" json:"-"`
	Orders           []Order      `json:"-"`
	Reviews          []Review     `json:"-"`
	PushTokens       []PushToken  `json:"-"`
}

func (u *User) HasLocation() bool { return u.Latitude != nil && u.Longitude != nil }
