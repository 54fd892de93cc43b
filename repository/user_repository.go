package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heritageplates/backend/entity"
)

// UserRepository รับผิดชอบการคุยกับตาราง users ใน DB เท่านั้น
type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(id string) (*entity.User, error) {
	var user entity.User
	if err := r.DB.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*entity.User, error) {
	var user entity.User
	if err := r.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Ensure inserts the profile row if it does not exist yet and returns the stored row.
func (r *UserRepository) Ensure(u *entity.User) (*entity.User, error) {
	if err := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error; err != nil {
		return nil, err
	}
	return r.FindByID(u.ID)
}

func (r *UserRepository) Update(userID string, updates map[string]any) error {
	return r.DB.Model(&entity.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *UserRepository) SetRole(tx *gorm.DB, userID, role string) error {
	return tx.Model(&entity.User{}).Where("id = ?", userID).Update("role", role).Error
}

func (r *UserRepository) AddLoyaltyPoints(tx *gorm.DB, userID string, points int64) error {
	return tx.Model(&entity.User{}).Where("id = ?", userID).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points)).Error
}

// ListIDs returns user ids in batches via fn; used for broadcasts.
func (r *UserRepository) ListIDs(batch int, fn func(ids []string) error) error {
	if batch <= 0 {
		batch = 500
	}
	last := ""
	for {
		var ids []string
		if err := r.DB.Model(&entity.User{}).
			Where("id > ?", last).
			Order("id ASC").Limit(batch).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := fn(ids); err != nil {
			return err
		}
		last = ids[len(ids)-1]
	}
}
