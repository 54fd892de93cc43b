package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

type OrderService struct {
	DB        *gorm.DB
	Repo      *repository.OrderRepository
	CartRepo  *repository.CartRepository
	DishRepo  *repository.DishRepository
	RestRepo  *repository.RestaurantRepository
	PromoRepo *repository.PromotionRepository
	UserRepo  *repository.UserRepository
	IDs       *OrderIDService
	Notifier  Notifier
	Log       logrus.FieldLogger

	DeliveryFee      int64
	LoyaltyPointUnit int64

	statusMu sync.Mutex
	status   map[string]uint
}

type OrderDeps struct {
	Repo      *repository.OrderRepository
	CartRepo  *repository.CartRepository
	DishRepo  *repository.DishRepository
	RestRepo  *repository.RestaurantRepository
	PromoRepo *repository.PromotionRepository
	UserRepo  *repository.UserRepository
	IDs       *OrderIDService
	Notifier  Notifier
}

func NewOrderService(db *gorm.DB, deps OrderDeps, deliveryFee, loyaltyUnit int64, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		DB:               db,
		Repo:             deps.Repo,
		CartRepo:         deps.CartRepo,
		DishRepo:         deps.DishRepo,
		RestRepo:         deps.RestRepo,
		PromoRepo:        deps.PromoRepo,
		UserRepo:         deps.UserRepo,
		IDs:              deps.IDs,
		Notifier:         deps.Notifier,
		Log:              log,
		DeliveryFee:      deliveryFee,
		LoyaltyPointUnit: loyaltyUnit,
	}
}

// statusID reads the lookup table once it has been seeded.
func (s *OrderService) statusID(name string) (uint, error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if len(s.status) == 0 {
		m, err := s.Repo.StatusIDs()
		if err != nil {
			return 0, err
		}
		s.status = m
	}
	id, ok := s.status[name]
	if !ok {
		return 0, fmt.Errorf("order status %q is not seeded", name)
	}
	return id, nil
}

// ----- DTOs from Controller -----

type OrderItemIn struct {
	DishID uint   `json:"dishId" binding:"required"`
	Qty    int    `json:"qty" binding:"required,min=1,max=99"`
	Note   string `json:"note"`
}

type CreateOrderIn struct {
	RestaurantID uint          `json:"restaurantId" binding:"required"`
	Items        []OrderItemIn `json:"items" binding:"required,min=1,dive"`
	Address      string        `json:"address" binding:"required"`
	Note         string        `json:"note"`
	PromoCode    string        `json:"promoCode"`
}

type CheckoutIn struct {
	Address   string `json:"address" binding:"required"`
	Note      string `json:"note"`
	PromoCode string `json:"promoCode"`
}

type orderLine struct {
	dish entity.Dish
	qty  int
	note string
}

// Quote is the priced basket before it becomes an order.
type Quote struct {
	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	DeliveryFee int64 `json:"deliveryFee"`
	Total       int64 `json:"total"`
}

// price computes subtotal, discount, fee and total for lines.
func price(lines []orderLine, promo *entity.Promotion, deliveryFee int64) (Quote, error) {
	var q Quote
	for _, l := range lines {
		q.Subtotal += l.dish.Price * int64(l.qty)
	}
	discount, fee, err := Discount(promo, q.Subtotal, deliveryFee)
	if err != nil {
		return q, err
	}
	q.Discount, q.DeliveryFee = discount, fee
	q.Total = q.Subtotal - q.Discount + q.DeliveryFee
	return q, nil
}

func (s *OrderService) promotion(code string) (*entity.Promotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	p, err := s.PromoRepo.FindByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Validation("unknown promo code")
	}
	if err != nil {
		return nil, err
	}
	if !p.ActiveAt(s.IDs.Now()) {
		return nil, apperr.Validation("promo code is not active")
	}
	return p, nil
}

func checkLines(restID uint, lines []orderLine) error {
	if len(lines) == 0 {
		return apperr.Validation("order has no items")
	}
	for _, l := range lines {
		if l.dish.ID == 0 {
			return apperr.Validation("a dish in the order no longer exists")
		}
		if l.dish.RestaurantID != restID {
			return apperr.Validation("dish is not on this restaurant's menu")
		}
		if !l.dish.IsAvailable {
			return apperr.Validation(l.dish.Name + " is not available")
		}
		if l.qty <= 0 {
			return apperr.Validation("quantity must be positive")
		}
	}
	return nil
}

// place writes the order inside tx; the order code comes from the same transaction.
func (s *OrderService) place(ctx context.Context, tx *gorm.DB, userID string, restID uint, lines []orderLine, address, note string, promo *entity.Promotion) (*entity.Order, error) {
	if err := checkLines(restID, lines); err != nil {
		return nil, err
	}
	q, err := price(lines, promo, s.DeliveryFee)
	if err != nil {
		return nil, err
	}
	pending, err := s.statusID(entity.StatusPending)
	if err != nil {
		return nil, err
	}
	id, err := s.IDs.GenerateTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	o := &entity.Order{
		OrderCode:     id.OrderID,
		Subtotal:      q.Subtotal,
		Discount:      q.Discount,
		DeliveryFee:   q.DeliveryFee,
		Total:         q.Total,
		Address:       strings.TrimSpace(address),
		Note:          strings.TrimSpace(note),
		UserID:        userID,
		RestaurantID:  restID,
		OrderStatusID: pending,
	}
	if promo != nil {
		o.PromotionID = &promo.ID
	}
	if err := s.Repo.CreateOrder(tx, o); err != nil {
		return nil, err
	}
	for _, l := range lines {
		oi := entity.OrderItem{
			OrderID:   o.ID,
			DishID:    l.dish.ID,
			DishName:  l.dish.Name,
			Qty:       l.qty,
			UnitPrice: l.dish.Price,
			Total:     l.dish.Price * int64(l.qty),
			Note:      l.note,
		}
		if err := s.Repo.CreateOrderItem(tx, &oi); err != nil {
			return nil, err
		}
		o.OrderItems = append(o.OrderItems, oi)
	}
	o.OrderStatus = entity.OrderStatus{StatusName: entity.StatusPending}
	o.OrderStatus.ID = pending
	return o, nil
}

// ----- Create -----

func (s *OrderService) Create(ctx context.Context, userID string, in CreateOrderIn) (*entity.Order, error) {
	ok, err := s.RestRepo.Exists(in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("restaurant not found")
	}
	promo, err := s.promotion(in.PromoCode)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.DishID)
	}
	dishes, err := s.DishRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]entity.Dish, len(dishes))
	for _, d := range dishes {
		byID[d.ID] = d
	}
	lines := make([]orderLine, 0, len(in.Items))
	for _, it := range in.Items {
		d, ok := byID[it.DishID]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("dish %d not found", it.DishID))
		}
		lines = append(lines, orderLine{dish: d, qty: it.Qty, note: strings.TrimSpace(it.Note)})
	}

	var out *entity.Order
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		o, err := s.place(ctx, tx, userID, in.RestaurantID, lines, in.Address, in.Note, promo)
		out = o
		return err
	})
	if err != nil {
		return nil, err
	}
	s.placed(ctx, out)
	return out, nil
}

// Checkout turns the cart into an order and empties the cart in the same transaction.
func (s *OrderService) Checkout(ctx context.Context, userID string, in CheckoutIn) (*entity.Order, error) {
	promo, err := s.promotion(in.PromoCode)
	if err != nil {
		return nil, err
	}

	var out *entity.Order
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		cart, err := s.CartRepo.GetCartWithItems(tx, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 || cart.RestaurantID == 0 {
			return apperr.Validation("cart is empty")
		}
		lines := make([]orderLine, 0, len(cart.Items))
		for _, it := range cart.Items {
			if it.Dish.ID != 0 && it.UnitPrice != it.Dish.Price {
				return apperr.Conflict("prices changed since the cart was last viewed; review your cart")
			}
			lines = append(lines, orderLine{dish: it.Dish, qty: it.Qty, note: it.Note})
		}
		o, err := s.place(ctx, tx, userID, cart.RestaurantID, lines, in.Address, in.Note, promo)
		if err != nil {
			return err
		}
		out = o
		return s.CartRepo.ClearCart(tx, userID)
	})
	if err != nil {
		return nil, err
	}
	s.placed(ctx, out)
	return out, nil
}

func (s *OrderService) placed(ctx context.Context, o *entity.Order) {
	s.Log.WithFields(logrus.Fields{"order_code": o.OrderCode, "restaurant_id": o.RestaurantID, "total": o.Total}).Info("order placed")
	s.notifyStatus(ctx, o, entity.StatusPending)
}

// ----- Read -----

func (s *OrderService) Mine(userID string, limit int) ([]repository.OrderSummary, error) {
	return s.Repo.ListOrdersForUser(userID, limit)
}

// Detail accepts the numeric id or the HP-YY-XXXXXXX code.
func (s *OrderService) Detail(actor *entity.User, ref string) (*entity.Order, error) {
	var (
		o   *entity.Order
		err error
	)
	if ValidOrderID(ref) {
		o, err = s.Repo.GetOrderWithItems("order_code = ?", ref)
	} else {
		id, perr := strconv.ParseUint(ref, 10, 64)
		if perr != nil {
			return nil, apperr.Validation("invalid order reference")
		}
		o, err = s.Repo.GetOrderWithItems("id = ?", uint(id))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	if err := s.canView(actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) canView(actor *entity.User, o *entity.Order) error {
	if actor.Role == entity.RoleAdmin || o.UserID == actor.ID {
		return nil
	}
	owned, err := s.RestRepo.IsOwnedBy(o.RestaurantID, actor.ID)
	if err != nil {
		return err
	}
	if !owned {
		return apperr.NotFound("order not found")
	}
	return nil
}

type RestaurantOrdersPage struct {
	Items []repository.OwnerOrderSummary `json:"items"`
	Total int64                          `json:"total"`
	Page  int                            `json:"page"`
	Limit int                            `json:"limit"`
}

func (s *OrderService) RestaurantOrders(actor *entity.User, restID uint, status string, page, limit int) (*RestaurantOrdersPage, error) {
	if actor.Role != entity.RoleAdmin {
		owned, err := s.RestRepo.IsOwnedBy(restID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, apperr.Forbidden("not your restaurant")
		}
	}
	var statusID *uint
	if status != "" {
		id, err := s.statusID(status)
		if err != nil {
			return nil, apperr.Validation("unknown status")
		}
		statusID = &id
	}
	rows, total, err := s.Repo.ListOrdersForRestaurant(restID, statusID, page, limit)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return &RestaurantOrdersPage{Items: rows, Total: total, Page: page, Limit: limit}, nil
}
