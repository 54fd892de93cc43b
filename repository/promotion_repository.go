package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type PromotionRepository struct{ DB *gorm.DB }

func NewPromotionRepository(db *gorm.DB) *PromotionRepository { return &PromotionRepository{DB: db} }

func (r *PromotionRepository) Create(p *entity.Promotion) error {
	return r.DB.Create(p).Error
}

func (r *PromotionRepository) FindByCode(code string) (*entity.Promotion, error) {
	var p entity.Promotion
	if err := r.DB.Where("promo_code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PromotionRepository) ListActive(now time.Time) ([]entity.Promotion, error) {
	var rows []entity.Promotion
	err := r.DB.
		Where("(start_at IS NULL OR start_at <= ?) AND (end_at IS NULL OR end_at >= ?)", now, now).
		Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *PromotionRepository) ListAll() ([]entity.Promotion, error) {
	var rows []entity.Promotion
	err := r.DB.Order("id DESC").Find(&rows).Error
	return rows, err
}
