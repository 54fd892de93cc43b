package entity

import "time"

// OrderIDCounter is one row per calendar year; CurrentNumber is the last sequence handed out.
type OrderIDCounter struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Year          int       `gorm:"uniqueIndex;not null" json:"year"`
	CurrentNumber int64     `gorm:"not null;default:0" json:"currentNumber"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (OrderIDCounter) TableName() string { return "order_id_counters" }
