package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

// AdminPolicy decides which emails are promoted to admin on first sight.
type AdminPolicy interface {
	IsAdminEmail(email string) bool
}

// AuthService ดูแลโปรไฟล์ของผู้ใช้ที่ยืนยันตัวตนจาก auth provider แล้ว
type AuthService struct {
	userRepo *repository.UserRepository
	admins   AdminPolicy
}

func NewAuthService(repo *repository.UserRepository, admins AdminPolicy) *AuthService {
	return &AuthService{userRepo: repo, admins: admins}
}

// EnsureProfile returns the profile for a verified token, creating it on first request.
func (s *AuthService) EnsureProfile(userID, email string) (*entity.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Unauthorized("token has no subject")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.userRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u, err = s.userRepo.Ensure(&entity.User{ID: userID, Email: email, Role: entity.RoleCustomer})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// insert was skipped because the email belongs to another account
			return nil, apperr.Conflict("email is already linked to another account")
		}
	}
	if err != nil {
		return nil, err
	}

	if s.admins != nil && u.Role != entity.RoleAdmin && s.admins.IsAdminEmail(u.Email) {
		if err := s.userRepo.SetRole(s.userRepo.DB, u.ID, entity.RoleAdmin); err != nil {
			return nil, err
		}
		u.Role = entity.RoleAdmin
	}
	return u, nil
}

func (s *AuthService) GetProfile(userID string) (*entity.User, error) {
	return s.userRepo.FindByID(userID)
}

type UpdateProfileIn struct {
	FirstName           *string  `json:"firstName"`
	LastName            *string  `json:"lastName"`
	PhoneNumber         *string  `json:"phoneNumber"`
	Address             *string  `json:"address"`
	HomeCountryCode     *string  `json:"homeCountryCode" binding:"omitempty,len=2"`
	Latitude            *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude           *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	OnboardingCompleted *bool    `json:"onboardingCompleted"`
}

// UpdateProfile อัปเดตเฉพาะฟิลด์ที่ส่งมา
func (s *AuthService) UpdateProfile(userID string, in UpdateProfileIn) (*entity.User, error) {
	updates := map[string]any{}
	str := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	str("first_name", in.FirstName)
	str("last_name", in.LastName)
	str("phone_number", in.PhoneNumber)
	str("address", in.Address)
	if in.HomeCountryCode != nil {
		updates["home_country_code"] = strings.ToUpper(strings.TrimSpace(*in.HomeCountryCode))
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, apperr.Validation("latitude and longitude must be set together")
	}
	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
		updates["longitude"] = *in.Longitude
	}
	if in.OnboardingCompleted != nil {
		updates["onboarding_completed"] = *in.OnboardingCompleted
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}

	if err := s.userRepo.Update(userID, updates); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(userID)
}
