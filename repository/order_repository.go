package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

// ---------------- Orders ----------------

func (r *OrderRepository) CreateOrder(tx *gorm.DB, o *entity.Order) error {
	return tx.Create(o).Error
}

func (r *OrderRepository) GetOrder(tx *gorm.DB, orderID uint) (*entity.Order, error) {
	var o entity.Order
	if err := tx.Preload("OrderStatus").First(&o, orderID).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetOrderWithItems(where string, args ...any) (*entity.Order, error) {
	var o entity.Order
	if err := r.DB.Preload("OrderStatus").
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where(where, args...).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ดึงข้อมูลตามนี้ แล้วส่งไป
type OrderSummary struct {
	ID           uint      `json:"id"`
	OrderCode    string    `json:"orderCode"`
	RestaurantID uint      `json:"restaurantId"`
	Total        int64     `json:"total"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (r *OrderRepository) ListOrdersForUser(userID string, limit int) ([]OrderSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []OrderSummary
	err := r.DB.Table("orders AS o").
		Select("o.id, o.order_code, o.restaurant_id, o.total, s.status_name AS status, o.created_at").
		Joins("JOIN order_statuses s ON s.id = o.order_status_id").
		Where("o.user_id = ? AND o.deleted_at IS NULL", userID).
		Order("o.id DESC").Limit(limit).
		Scan(&out).Error
	return out, err
}

type OwnerOrderSummary struct {
	ID           uint      `json:"id"`
	OrderCode    string    `json:"orderCode"`
	UserID       string    `json:"userId"`
	CustomerName string    `json:"customerName"`
	Total        int64     `json:"total"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (r *OrderRepository) ListOrdersForRestaurant(restID uint, statusID *uint, page, limit int) ([]OwnerOrderSummary, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int64
	dbCount := r.DB.Table("orders AS o").Where("o.restaurant_id = ? AND o.deleted_at IS NULL", restID)
	if statusID != nil && *statusID != 0 {
		dbCount = dbCount.Where("o.order_status_id = ?", *statusID)
	}
	if err := dbCount.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// join users → ดึงชื่อลูกค้า
	var rows []struct {
		ID        uint
		OrderCode string
		UserID    string
		Total     int64
		Status    string
		CreatedAt time.Time
		FirstName string
		LastName  string
	}
	db := r.DB.Table("orders AS o").
		Select("o.id, o.order_code, o.user_id, o.total, s.status_name AS status, o.created_at, u.first_name, u.last_name").
		Joins("JOIN users u ON u.id = o.user_id").
		Joins("JOIN order_statuses s ON s.id = o.order_status_id").
		Where("o.restaurant_id = ? AND o.deleted_at IS NULL", restID)
	if statusID != nil && *statusID != 0 {
		db = db.Where("o.order_status_id = ?", *statusID)
	}
	if err := db.Order("o.id DESC").Limit(limit).Offset(offset).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]OwnerOrderSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, OwnerOrderSummary{
			ID:           row.ID,
			OrderCode:    row.OrderCode,
			UserID:       row.UserID,
			CustomerName: strings.TrimSpace(row.FirstName + " " + row.LastName),
			Total:        row.Total,
			Status:       row.Status,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, total, nil
}

// UpdateStatusGuard moves an order only if it is still in fromID.
func (r *OrderRepository) UpdateStatusGuard(tx *gorm.DB, orderID, fromID, toID uint) (int64, error) {
	res := tx.Model(&entity.Order{}).
		Where("id = ? AND order_status_id = ?", orderID, fromID).
		Update("order_status_id", toID)
	return res.RowsAffected, res.Error
}

// ---------------- Order Items ----------------

func (r *OrderRepository) CreateOrderItem(tx *gorm.DB, oi *entity.OrderItem) error {
	return tx.Create(oi).Error
}

func (r *OrderRepository) GetOrderItems(orderID uint) ([]entity.OrderItem, error) {
	var items []entity.OrderItem
	err := r.DB.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error
	return items, err
}

// ---------------- Lookups ----------------

// StatusIDs reads the whole lookup table into name → id.
func (r *OrderRepository) StatusIDs() (map[string]uint, error) {
	var rows []entity.OrderStatus
	if err := r.DB.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]uint, len(rows))
	for _, s := range rows {
		out[s.StatusName] = s.ID
	}
	return out, nil
}

func (r *OrderRepository) UserOwnsOrder(userID string, orderID, restID uint) (bool, error) {
	var cnt int64
	err := r.DB.Model(&entity.Order{}).
		Where("id = ? AND user_id = ? AND restaurant_id = ?", orderID, userID, restID).
		Count(&cnt).Error
	return cnt > 0, err
}
