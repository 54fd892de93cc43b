// repository/dish_repository.go
package repository

import (
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type DishRepository struct {
	DB *gorm.DB
}

func NewDishRepository(db *gorm.DB) *DishRepository {
	return &DishRepository{DB: db}
}

// ดึงเมนูทั้งหมดของร้าน
func (r *DishRepository) FindByRestaurant(restID uint, availableOnly bool) ([]entity.Dish, error) {
	var dishes []entity.Dish
	q := r.DB.Where("restaurant_id = ?", restID)
	if availableOnly {
		q = q.Where("is_available = ?", true)
	}
	err := q.Order("id ASC").Find(&dishes).Error
	return dishes, err
}

func (r *DishRepository) FindByID(id uint) (*entity.Dish, error) {
	var dish entity.Dish
	if err := r.DB.First(&dish, id).Error; err != nil {
		return nil, err
	}
	return &dish, nil
}

func (r *DishRepository) FindByIDs(ids []uint) ([]entity.Dish, error) {
	var dishes []entity.Dish
	if len(ids) == 0 {
		return dishes, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&dishes).Error
	return dishes, err
}

func (r *DishRepository) Featured(limit int) ([]entity.Dish, error) {
	var dishes []entity.Dish
	err := r.DB.Where("is_featured = ? AND is_available = ?", true, true).
		Order("updated_at DESC").Limit(limit).Find(&dishes).Error
	return dishes, err
}

func (r *DishRepository) Create(dish *entity.Dish) error {
	return r.DB.Create(dish).Error
}

func (r *DishRepository) Update(id uint, updates map[string]any) error {
	return r.DB.Model(&entity.Dish{}).Where("id = ?", id).Updates(updates).Error
}

func (r *DishRepository) Delete(id uint) error {
	return r.DB.Delete(&entity.Dish{}, id).Error
}
