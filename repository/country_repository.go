package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type CountryRepository struct{ DB *gorm.DB }

func NewCountryRepository(db *gorm.DB) *CountryRepository { return &CountryRepository{DB: db} }

func (r *CountryRepository) List(featuredOnly bool) ([]entity.Country, error) {
	var out []entity.Country
	q := r.DB.Order("name ASC")
	if featuredOnly {
		q = q.Where("featured = ?", true)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *CountryRepository) FindByCode(code string) (*entity.Country, error) {
	var c entity.Country
	if err := r.DB.Where("code = ?", strings.ToUpper(code)).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CountryRepository) Create(c *entity.Country) error {
	return r.DB.Create(c).Error
}

func (r *CountryRepository) Update(c *entity.Country) error {
	return r.DB.Save(c).Error
}
