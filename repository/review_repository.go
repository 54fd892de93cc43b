package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heritageplates/backend/entity"
)

type ReviewRepository struct{ DB *gorm.DB }

func NewReviewRepository(db *gorm.DB) *ReviewRepository { return &ReviewRepository{DB: db} }

// FindByUserAndRestaurant returns the user's review of a restaurant (one per pair).
func (r *ReviewRepository) FindByUserAndRestaurant(tx *gorm.DB, userID string, restID uint) (*entity.Review, error) {
	var rev entity.Review
	if err := tx.Where("user_id = ? AND restaurant_id = ?", userID, restID).First(&rev).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

// Upsert inserts rev or overwrites the existing review of the same user and restaurant.
// A nil OrderID keeps whatever order the stored review points at.
func (r *ReviewRepository) Upsert(tx *gorm.DB, rev *entity.Review) error {
	cols := []string{"rating", "comments", "review_date", "updated_at"}
	if rev.OrderID != nil {
		cols = append(cols, "order_id")
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "restaurant_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(rev).Error
}

func (r *ReviewRepository) FindByID(id uint) (*entity.Review, error) {
	var rev entity.Review
	if err := r.DB.First(&rev, id).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *ReviewRepository) Delete(tx *gorm.DB, id uint) error {
	return tx.Unscoped().Delete(&entity.Review{}, id).Error
}

func (r *ReviewRepository) ListForRestaurant(restID uint, limit, offset int) ([]entity.Review, error) {
	var reviews []entity.Review
	err := r.DB.Where("restaurant_id = ?", restID).
		Order("review_date DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) ListForUser(userID string, limit, offset int) ([]entity.Review, error) {
	var reviews []entity.Review
	err := r.DB.Where("user_id = ?", userID).
		Order("review_date DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&reviews).Error
	return reviews, err
}
