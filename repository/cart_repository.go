package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type CartRepository struct{ DB *gorm.DB }

func NewCartRepository(db *gorm.DB) *CartRepository { return &CartRepository{DB: db} }

// คืน Cart เดิมของ user (ถ้าไม่มีก็คืน Cart ว่าง ๆ โดยไม่ error เพื่อให้ FE แสดงได้)
func (r *CartRepository) GetCartWithItems(tx *gorm.DB, userID string) (*entity.Cart, error) {
	var c entity.Cart
	err := tx.Where("user_id = ?", userID).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Dish").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &entity.Cart{UserID: userID}, nil
	}
	return &c, err
}

func (r *CartRepository) GetOrCreateCart(tx *gorm.DB, userID string) (*entity.Cart, error) {
	var c entity.Cart
	err := tx.Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = entity.Cart{UserID: userID}
		if err := tx.Create(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	}
	return &c, err
}

func (r *CartRepository) LockRestaurant(tx *gorm.DB, cartID, restaurantID uint) error {
	return tx.Model(&entity.Cart{}).Where("id = ?", cartID).Update("restaurant_id", restaurantID).Error
}

// เพิ่มหรือรวม line: เมนูเดียวกัน + note เดียวกัน
func (r *CartRepository) UpsertItem(tx *gorm.DB, cartID uint, row *entity.CartItem) error {
	var exist entity.CartItem
	err := tx.Where("cart_id = ? AND dish_id = ? AND note = ?", cartID, row.DishID, row.Note).
		First(&exist).Error
	if err == nil {
		exist.Qty += row.Qty
		exist.UnitPrice = row.UnitPrice
		exist.Total = int64(exist.Qty) * exist.UnitPrice
		return tx.Save(&exist).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	row.CartID = cartID
	return tx.Create(row).Error
}

// UpdateQty returns the number of rows touched so callers can report a missing item.
func (r *CartRepository) UpdateQty(tx *gorm.DB, userID string, itemID uint, qty int) (int64, error) {
	if qty <= 0 {
		return r.RemoveItem(tx, userID, itemID)
	}
	// ensure item เป็นของ cart ของ user
	res := tx.Exec(`
		UPDATE cart_items
		   SET qty = ?, total = unit_price * ?
		 WHERE id = ?
		   AND deleted_at IS NULL
		   AND cart_id IN (SELECT id FROM carts WHERE user_id = ?)
	`, qty, qty, itemID, userID)
	return res.RowsAffected, res.Error
}

func (r *CartRepository) RemoveItem(tx *gorm.DB, userID string, itemID uint) (int64, error) {
	res := tx.Unscoped().
		Where("id = ? AND cart_id IN (SELECT id FROM carts WHERE user_id = ?)", itemID, userID).
		Delete(&entity.CartItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	// ถ้าตะกร้าว่างแล้ว → รีเซ็ต restaurant_id = 0
	err := tx.Exec(`
		UPDATE carts SET restaurant_id = 0
		 WHERE user_id = ?
		   AND NOT EXISTS (SELECT 1 FROM cart_items ci WHERE ci.cart_id = carts.id)
	`, userID).Error
	return res.RowsAffected, err
}

func (r *CartRepository) ClearCart(tx *gorm.DB, userID string) error {
	var c entity.Cart
	if err := tx.Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := tx.Unscoped().Where("cart_id = ?", c.ID).Delete(&entity.CartItem{}).Error; err != nil {
		return err
	}
	// รีเซ็ตร้านของตะกร้าให้เป็น 0 เพื่อพร้อมรับร้านใหม่
	return tx.Model(&entity.Cart{}).Where("id = ?", c.ID).Update("restaurant_id", 0).Error
}

// RepriceItem stores the dish's current unit price on a cart line.
func (r *CartRepository) RepriceItem(tx *gorm.DB, itemID uint, unitPrice int64) error {
	return tx.Model(&entity.CartItem{}).Where("id = ?", itemID).
		Updates(map[string]any{"unit_price": unitPrice, "total": gorm.Expr("qty * ?", unitPrice)}).Error
}
