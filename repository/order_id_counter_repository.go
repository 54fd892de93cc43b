package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type OrderIDCounterRepository struct{ DB *gorm.DB }

func NewOrderIDCounterRepository(db *gorm.DB) *OrderIDCounterRepository {
	return &OrderIDCounterRepository{DB: db}
}

// nextSQL creates the year's row at 1 or bumps it, returning the new value in
// the same statement so two callers can never observe the same number.
const nextSQL = `
INSERT INTO order_id_counters (year, current_number, created_at, updated_at)
VALUES (?, 1, ?, ?)
ON CONFLICT (year) DO UPDATE
   SET current_number = order_id_counters.current_number + 1,
       updated_at     = excluded.updated_at
RETURNING current_number`

// Next advances the counter for year. tx may be a transaction or the base handle.
func (r *OrderIDCounterRepository) Next(ctx context.Context, tx *gorm.DB, year int) (int64, error) {
	if tx == nil {
		tx = r.DB
	}
	now := time.Now().UTC()
	var row struct{ CurrentNumber int64 }
	res := tx.WithContext(ctx).Raw(nextSQL, year, now, now).Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, errors.New("order id counter returned no row")
	}
	return row.CurrentNumber, nil
}

// Current reads the last number handed out for year (0 if none).
func (r *OrderIDCounterRepository) Current(ctx context.Context, year int) (int64, error) {
	var c entity.OrderIDCounter
	err := r.DB.WithContext(ctx).Where("year = ?", year).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return c.CurrentNumber, err
}
