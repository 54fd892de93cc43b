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

type PromotionService struct {
	Repo     *repository.PromotionRepository
	Notifier Notifier
	Log      logrus.FieldLogger
	Now      func() time.Time
}

func NewPromotionService(repo *repository.PromotionRepository, n Notifier, log logrus.FieldLogger) *PromotionService {
	return &PromotionService{Repo: repo, Notifier: n, Log: log, Now: time.Now}
}

type PromotionIn struct {
	PromoCode    string     `json:"promoCode" binding:"required"`
	Title        string     `json:"title" binding:"required"`
	PromoDetail  string     `json:"promoDetail"`
	DiscountType string     `json:"discountType" binding:"required,oneof=amount percent free_delivery"`
	Value        int64      `json:"value" binding:"gte=0"`
	MinOrder     int64      `json:"minOrder" binding:"gte=0"`
	StartAt      *time.Time `json:"startAt"`
	EndAt        *time.Time `json:"endAt"`
	Announce     bool       `json:"announce"`
}

// Create stores a promotion; with Announce set every opted-in user gets a promotional push.
func (s *PromotionService) Create(ctx context.Context, adminID string, in PromotionIn) (*entity.Promotion, error) {
	code := strings.ToUpper(strings.TrimSpace(in.PromoCode))
	if code == "" {
		return nil, apperr.Validation("promoCode is required")
	}
	switch in.DiscountType {
	case entity.DiscountPercent:
		if in.Value < 1 || in.Value > 100 {
			return nil, apperr.Validation("percent value must be between 1 and 100")
		}
	case entity.DiscountAmount:
		if in.Value <= 0 {
			return nil, apperr.Validation("amount value must be positive")
		}
	case entity.DiscountFreeDelivery:
	default:
		return nil, apperr.Validation("unknown discount type")
	}
	if in.StartAt != nil && in.EndAt != nil && in.EndAt.Before(*in.StartAt) {
		return nil, apperr.Validation("endAt must be after startAt")
	}
	if _, err := s.Repo.FindByCode(code); err == nil {
		return nil, apperr.Conflict("promo code already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := &entity.Promotion{
		PromoCode:    code,
		Title:        strings.TrimSpace(in.Title),
		PromoDetail:  in.PromoDetail,
		DiscountType: in.DiscountType,
		Value:        in.Value,
		MinOrder:     in.MinOrder,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		CreatedByID:  adminID,
	}
	if err := s.Repo.Create(p); err != nil {
		return nil, err
	}

	if in.Announce && s.Notifier != nil {
		payload := Payload{
			Type:  NotifyPromotional,
			Title: p.Title,
			Body:  p.PromoDetail,
			Data:  map[string]string{"promotionId": strconv.FormatUint(uint64(p.ID), 10), "promoCode": p.PromoCode},
		}
		if _, err := s.Notifier.Broadcast(ctx, payload); err != nil {
			s.Log.WithError(err).WithField("promo_code", p.PromoCode).Warn("broadcast promotion")
		}
	}
	return p, nil
}

func (s *PromotionService) ListActive() ([]entity.Promotion, error) {
	return s.Repo.ListActive(s.Now())
}

func (s *PromotionService) ListAll() ([]entity.Promotion, error) {
	return s.Repo.ListAll()
}

// Lookup returns an active promotion by code.
func (s *PromotionService) Lookup(code string) (*entity.Promotion, error) {
	p, err := s.Repo.FindByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("promo code not found")
	}
	if err != nil {
		return nil, err
	}
	if !p.ActiveAt(s.Now()) {
		return nil, apperr.Validation("promo code is not active")
	}
	return p, nil
}

// Discount applies p to a basket; it never exceeds the subtotal, and free delivery zeroes the fee.
func Discount(p *entity.Promotion, subtotal, deliveryFee int64) (discount, fee int64, err error) {
	fee = deliveryFee
	if p == nil {
		return 0, fee, nil
	}
	if subtotal < p.MinOrder {
		return 0, fee, apperr.Validation("order does not reach the promotion minimum")
	}
	switch p.DiscountType {
	case entity.DiscountAmount:
		discount = p.Value
	case entity.DiscountPercent:
		discount = subtotal * p.Value / 100
	case entity.DiscountFreeDelivery:
		fee = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount, fee, nil
}
