// services/vendor_service.go
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

type VendorService struct {
	Repo      *repository.VendorRepository
	Countries *repository.CountryRepository
	Notifier  Notifier
	Log       logrus.FieldLogger
	Now       func() time.Time
}

func NewVendorService(repo *repository.VendorRepository, countries *repository.CountryRepository, n Notifier, log logrus.FieldLogger) *VendorService {
	return &VendorService{Repo: repo, Countries: countries, Notifier: n, Log: log, Now: time.Now}
}

type VendorApplyIn struct {
	BusinessName string   `json:"businessName" binding:"required"`
	ContactEmail string   `json:"contactEmail" binding:"omitempty,email"`
	Phone        string   `json:"phone"`
	Address      string   `json:"address" binding:"required"`
	Description  string   `json:"description"`
	Picture      string   `json:"picture"`
	Cuisine      string   `json:"cuisine"`
	CountryCode  string   `json:"countryCode" binding:"omitempty,len=2"`
	OpeningTime  string   `json:"openingTime"`
	ClosingTime  string   `json:"closingTime"`
	Latitude     *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

// Apply ยื่นใบสมัครเปิดร้าน; one pending application per user
func (s *VendorService) Apply(userID string, in VendorApplyIn) (*entity.Vendor, error) {
	n, err := s.Repo.CountPendingForUser(userID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperr.Conflict("you already have a pending application")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, apperr.Validation("latitude and longitude must be set together")
	}
	code := strings.ToUpper(strings.TrimSpace(in.CountryCode))
	if code != "" {
		if _, err := s.Countries.FindByCode(code); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Validation("unknown country code")
			}
			return nil, err
		}
	}

	v := &entity.Vendor{
		BusinessName: strings.TrimSpace(in.BusinessName),
		ContactEmail: strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Description:  in.Description,
		Picture:      in.Picture,
		Cuisine:      strings.TrimSpace(in.Cuisine),
		CountryCode:  code,
		OpeningTime:  in.OpeningTime,
		ClosingTime:  in.ClosingTime,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		OwnerUserID:  userID,
		Status:       entity.VendorPending,
	}
	if err := s.Repo.Create(v); err != nil {
		// lost a race with a concurrent Apply from the same user
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("you already have a pending application")
		}
		return nil, err
	}
	return v, nil
}

func (s *VendorService) List(status string) ([]entity.Vendor, error) {
	switch status {
	case "":
		status = entity.VendorPending
	case entity.VendorPending, entity.VendorApproved, entity.VendorRejected:
	default:
		return nil, apperr.Validation("unknown status")
	}
	return s.Repo.FindByStatus(status)
}

func (s *VendorService) get(id uint) (*entity.Vendor, error) {
	v, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, err
	}
	if v.Status != entity.VendorPending {
		return nil, apperr.Conflict("application is not pending")
	}
	return v, nil
}

// Approve opens the restaurant and promotes the applicant to owner.
func (s *VendorService) Approve(ctx context.Context, id uint, adminID string) (*entity.Restaurant, error) {
	v, err := s.get(id)
	if err != nil {
		return nil, err
	}
	rest := &entity.Restaurant{
		Name:        v.BusinessName,
		Description: v.Description,
		Address:     v.Address,
		Picture:     v.Picture,
		Cuisine:     v.Cuisine,
		OwnerID:     v.OwnerUserID,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		OpeningTime: v.OpeningTime,
		ClosingTime: v.ClosingTime,
		IsOpen:      true,
	}
	if v.CountryCode != "" {
		if c, err := s.Countries.FindByCode(v.CountryCode); err == nil {
			rest.CountryID = &c.ID
		}
	}
	if err := s.Repo.Approve(v, rest, adminID, s.Now()); err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"vendor_id": v.ID, "restaurant_id": rest.ID, "admin": adminID}).Info("vendor approved")

	if s.Notifier != nil {
		p := Payload{
			Type:  NotifyNewRestaurant,
			Title: "Your restaurant is live",
			Body:  rest.Name + " is now open on Heritage Plates.",
			Data:  map[string]string{"restaurantId": strconv.FormatUint(uint64(rest.ID), 10)},
		}
		if err := s.Notifier.Notify(ctx, v.OwnerUserID, p); err != nil && !errors.Is(err, ErrMuted) {
			s.Log.WithError(err).Warn("notify approved vendor")
		}
	}
	return rest, nil
}

func (s *VendorService) Reject(id uint, reason, adminID string) (*entity.Vendor, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	v, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Reject(v, reason, adminID, s.Now()); err != nil {
		return nil, err
	}
	return v, nil
}
