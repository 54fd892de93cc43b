// repository/restaurant_repository.go
package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type RestaurantRepository struct {
	DB *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{DB: db}
}

// RestaurantQuery is the SQL side of a discovery search; distance is applied by the service.
type RestaurantQuery struct {
	CountryCode string
	Cuisine     string
	Text        string
	Featured    *bool
	OpenOnly    bool
	// bounding box, set together
	MinLat, MaxLat, MinLng, MaxLng *float64
	OrderBy                        string // "rating" | "newest"
	Limit, Offset                  int
}

func (r *RestaurantRepository) Search(q RestaurantQuery) ([]entity.Restaurant, int64, error) {
	db := r.DB.Model(&entity.Restaurant{})
	if q.CountryCode != "" {
		db = db.Joins("JOIN countries ON countries.id = restaurants.country_id").
			Where("countries.code = ?", strings.ToUpper(q.CountryCode))
	}
	if q.Cuisine != "" {
		db = db.Where("LOWER(restaurants.cuisine) = ?", strings.ToLower(q.Cuisine))
	}
	if q.Text != "" {
		like := "%" + strings.ToLower(q.Text) + "%"
		db = db.Where("LOWER(restaurants.name) LIKE ? OR LOWER(restaurants.description) LIKE ? OR LOWER(restaurants.cuisine) LIKE ?", like, like, like)
	}
	if q.Featured != nil {
		db = db.Where("restaurants.is_featured = ?", *q.Featured)
	}
	if q.OpenOnly {
		db = db.Where("restaurants.is_open = ?", true)
	}
	if q.MinLat != nil && q.MaxLat != nil && q.MinLng != nil && q.MaxLng != nil {
		db = db.Where("restaurants.latitude BETWEEN ? AND ? AND restaurants.longitude BETWEEN ? AND ?",
			*q.MinLat, *q.MaxLat, *q.MinLng, *q.MaxLng)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.OrderBy {
	case "newest":
		db = db.Order("restaurants.created_at DESC").Order("restaurants.id DESC")
	default:
		db = db.Order("restaurants.rating DESC").Order("restaurants.review_count DESC").Order("restaurants.id ASC")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit).Offset(q.Offset)
	}

	var rests []entity.Restaurant
	err := db.Preload("Country").Find(&rests).Error
	return rests, total, err
}

// ดึงร้านตาม ID
func (r *RestaurantRepository) FindByID(id uint) (*entity.Restaurant, error) {
	var rest entity.Restaurant
	err := r.DB.
		Preload("Country").
		Preload("Dishes", "is_available = ?", true).
		First(&rest, id).Error
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *RestaurantRepository) Create(tx *gorm.DB, rest *entity.Restaurant) error {
	return tx.Create(rest).Error
}

// อัปเดตร้าน
func (r *RestaurantRepository) Update(id uint, updates map[string]any) error {
	return r.DB.Model(&entity.Restaurant{}).Where("id = ?", id).Updates(updates).Error
}

func (r *RestaurantRepository) IsOwnedBy(restID uint, userID string) (bool, error) {
	var cnt int64
	err := r.DB.Model(&entity.Restaurant{}).
		Where("id = ? AND owner_id = ?", restID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *RestaurantRepository) Exists(id uint) (bool, error) {
	var cnt int64
	if err := r.DB.Model(&entity.Restaurant{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *RestaurantRepository) ListByOwner(userID string) ([]entity.Restaurant, error) {
	var rests []entity.Restaurant
	err := r.DB.Where("owner_id = ?", userID).Order("id ASC").Find(&rests).Error
	return rests, err
}

// RecomputeRating refreshes the cached average and count from the reviews table.
func (r *RestaurantRepository) RecomputeRating(tx *gorm.DB, restID uint) error {
	var agg struct {
		Avg   float64
		Count int64
	}
	if err := tx.Model(&entity.Review{}).
		Where("restaurant_id = ?", restID).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Scan(&agg).Error; err != nil {
		return err
	}
	return tx.Model(&entity.Restaurant{}).Where("id = ?", restID).
		Updates(map[string]any{"rating": agg.Avg, "review_count": agg.Count}).Error
}
