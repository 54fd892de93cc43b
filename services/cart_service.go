package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

type CartService struct {
	DB       *gorm.DB
	CartRepo *repository.CartRepository
	DishRepo *repository.DishRepository
}

func NewCartService(db *gorm.DB, cr *repository.CartRepository, dr *repository.DishRepository) *CartService {
	return &CartService{DB: db, CartRepo: cr, DishRepo: dr}
}

type AddToCartIn struct {
	RestaurantID uint   `json:"restaurantId" binding:"required"`
	DishID       uint   `json:"dishId" binding:"required"`
	Qty          int    `json:"qty" binding:"omitempty,min=1,max=99"`
	Note         string `json:"note" binding:"max=500"`
}

type CartView struct {
	*entity.Cart
	Subtotal int64 `json:"subtotal"`
	// PriceChanged is set when a line was re-priced to the dish's current price
	PriceChanged bool `json:"priceChanged"`
}

// Get returns the cart priced at current dish prices, so checkout charges what the user last saw.
func (s *CartService) Get(userID string) (*CartView, error) {
	view := &CartView{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := s.CartRepo.GetCartWithItems(tx, userID)
		if err != nil {
			return err
		}
		for i := range c.Items {
			it := &c.Items[i]
			if it.Dish.ID != 0 && it.UnitPrice != it.Dish.Price {
				if err := s.CartRepo.RepriceItem(tx, it.ID, it.Dish.Price); err != nil {
					return err
				}
				it.UnitPrice = it.Dish.Price
				it.Total = it.Dish.Price * int64(it.Qty)
				view.PriceChanged = true
			}
			view.Subtotal += it.Total
		}
		view.Cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *CartService) Add(userID string, in AddToCartIn) (*CartView, error) {
	if in.Qty <= 0 {
		in.Qty = 1
	}
	d, err := s.DishRepo.FindByID(in.DishID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("dish not found")
	}
	if err != nil {
		return nil, err
	}
	// ✅ ยืนยันเมนูอยู่ในร้านเดียวกับที่ส่งมา
	if d.RestaurantID != in.RestaurantID {
		return nil, apperr.Validation("dish is not on this restaurant's menu")
	}
	if !d.IsAvailable {
		return nil, apperr.Validation("dish is not available")
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := s.CartRepo.GetOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		// ถ้าคาร์ทล็อกร้านอื่นไว้ -> ไม่ให้ข้ามร้าน
		if c.RestaurantID != 0 && c.RestaurantID != in.RestaurantID {
			return apperr.Conflict("cart holds dishes from another restaurant; clear it first")
		}
		if c.RestaurantID == 0 {
			if err := s.CartRepo.LockRestaurant(tx, c.ID, in.RestaurantID); err != nil {
				return err
			}
		}
		line := &entity.CartItem{
			DishID:    d.ID,
			Qty:       in.Qty,
			UnitPrice: d.Price,
			Total:     d.Price * int64(in.Qty),
			Note:      strings.TrimSpace(in.Note),
		}
		return s.CartRepo.UpsertItem(tx, c.ID, line)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID)
}

// UpdateQty sets the quantity; zero or less removes the line.
func (s *CartService) UpdateQty(userID string, itemID uint, qty int) (*CartView, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		n, err := s.CartRepo.UpdateQty(tx, userID, itemID, qty)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("cart item not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID)
}

func (s *CartService) RemoveItem(userID string, itemID uint) (*CartView, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		n, err := s.CartRepo.RemoveItem(tx, userID, itemID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("cart item not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID)
}

func (s *CartService) Clear(userID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.CartRepo.ClearCart(tx, userID)
	})
}
