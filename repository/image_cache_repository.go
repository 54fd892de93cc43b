package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heritageplates/backend/entity"
)

// ImageCacheRepository persists the image cache index in the database.
type ImageCacheRepository struct{ DB *gorm.DB }

func NewImageCacheRepository(db *gorm.DB) *ImageCacheRepository {
	return &ImageCacheRepository{DB: db}
}

func (r *ImageCacheRepository) LoadAll(ctx context.Context) ([]entity.ImageCacheEntry, error) {
	var out []entity.ImageCacheEntry
	err := r.DB.WithContext(ctx).Order("last_access_at ASC").Find(&out).Error
	return out, err
}

func (r *ImageCacheRepository) Save(ctx context.Context, e *entity.ImageCacheEntry) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(e).Error
}

func (r *ImageCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Where("cache_key IN ?", keys).Delete(&entity.ImageCacheEntry{}).Error
}
