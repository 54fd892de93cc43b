// services/dish_service.go
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

type DishService struct {
	Repo      *repository.DishRepository
	Rests     *RestaurantService
	Countries *repository.CountryRepository
	Notifier  Notifier
	Log       logrus.FieldLogger
}

func NewDishService(repo *repository.DishRepository, rests *RestaurantService, countries *repository.CountryRepository, n Notifier, log logrus.FieldLogger) *DishService {
	return &DishService{Repo: repo, Rests: rests, Countries: countries, Notifier: n, Log: log}
}

// ListByRestaurant ลูกค้าเห็นเฉพาะเมนูที่ขายอยู่ เจ้าของเห็นทั้งหมด
func (s *DishService) ListByRestaurant(restID uint, includeUnavailable bool) ([]entity.Dish, error) {
	ok, err := s.Rests.Repo.Exists(restID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("restaurant not found")
	}
	return s.Repo.FindByRestaurant(restID, !includeUnavailable)
}

func (s *DishService) Get(id uint) (*entity.Dish, error) {
	d, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("dish not found")
	}
	return d, err
}

type DishIn struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Price        int64  `json:"price" binding:"gte=0"`
	Picture      string `json:"picture"`
	CountryCode  string `json:"countryCode"`
	IsVegetarian bool   `json:"isVegetarian"`
	IsSpicy      bool   `json:"isSpicy"`
	IsAvailable  *bool  `json:"isAvailable"`
}

func (s *DishService) Create(actor *entity.User, restID uint, in DishIn) (*entity.Dish, error) {
	if err := s.Rests.authorizeOwner(actor, restID); err != nil {
		return nil, err
	}
	d := &entity.Dish{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Price:        in.Price,
		Picture:      in.Picture,
		RestaurantID: restID,
		IsVegetarian: in.IsVegetarian,
		IsSpicy:      in.IsSpicy,
		IsAvailable:  true,
	}
	if in.IsAvailable != nil {
		d.IsAvailable = *in.IsAvailable
	}
	if in.CountryCode != "" {
		id, err := s.countryID(in.CountryCode)
		if err != nil {
			return nil, err
		}
		d.CountryID = &id
	}
	if err := s.Repo.Create(d); err != nil {
		return nil, err
	}
	return d, nil
}

type UpdateDishIn struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Price        *int64  `json:"price" binding:"omitempty,gte=0"`
	Picture      *string `json:"picture"`
	CountryCode  *string `json:"countryCode"`
	IsVegetarian *bool   `json:"isVegetarian"`
	IsSpicy      *bool   `json:"isSpicy"`
	IsAvailable  *bool   `json:"isAvailable"`
	IsFeatured   *bool   `json:"isFeatured"`
}

// Update แก้ไขเมนู; featuring a dish broadcasts featured_dish
func (s *DishService) Update(ctx context.Context, actor *entity.User, id uint, in UpdateDishIn) (*entity.Dish, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Rests.authorizeOwner(actor, d.RestaurantID); err != nil {
		return nil, err
	}
	wasFeatured := d.IsFeatured

	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.Picture != nil {
		updates["picture"] = *in.Picture
	}
	if in.IsVegetarian != nil {
		updates["is_vegetarian"] = *in.IsVegetarian
	}
	if in.IsSpicy != nil {
		updates["is_spicy"] = *in.IsSpicy
	}
	if in.IsAvailable != nil {
		updates["is_available"] = *in.IsAvailable
	}
	if in.IsFeatured != nil {
		updates["is_featured"] = *in.IsFeatured
	}
	if in.CountryCode != nil {
		if *in.CountryCode == "" {
			updates["country_id"] = nil
		} else {
			cid, err := s.countryID(*in.CountryCode)
			if err != nil {
				return nil, err
			}
			updates["country_id"] = cid
		}
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}
	if err := s.Repo.Update(id, updates); err != nil {
		return nil, err
	}
	d, err = s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if d.IsFeatured && !wasFeatured && s.Notifier != nil {
		p := Payload{
			Type:  NotifyFeaturedDish,
			Title: "Featured dish: " + d.Name,
			Body:  d.Description,
			Data: map[string]string{
				"restaurantId": strconv.FormatUint(uint64(d.RestaurantID), 10),
				"dishId":       strconv.FormatUint(uint64(d.ID), 10),
			},
		}
		if _, err := s.Notifier.Broadcast(ctx, p); err != nil {
			s.Log.WithError(err).WithField("dish_id", d.ID).Warn("broadcast featured dish")
		}
	}
	return d, nil
}

func (s *DishService) Delete(actor *entity.User, id uint) error {
	d, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.Rests.authorizeOwner(actor, d.RestaurantID); err != nil {
		return err
	}
	return s.Repo.Delete(id)
}

func (s *DishService) countryID(code string) (uint, error) {
	c, err := s.Countries.FindByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.Validation("unknown country code")
	}
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}
