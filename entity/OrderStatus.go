package entity

import (
	"gorm.io/gorm"
)

const (
	StatusPending    = "Pending"
	StatusConfirmed  = "Confirmed"
	StatusPreparing  = "Preparing"
	StatusDelivering = "Delivering"
	StatusDelivered  = "Delivered"
	StatusCancelled  = "Cancelled"
)

// OrderStatusNames in seed order.
var OrderStatusNames = []string{
	StatusPending, StatusConfirmed, StatusPreparing, StatusDelivering, StatusDelivered, StatusCancelled,
}

type OrderStatus struct {
	gorm.Model
	StatusName string `gorm:"size:50;uniqueIndex;not null" json:"statusName"`

	// ไม่จำเป็นต้องส่ง relation ทุกครั้ง
	Orders []Order `json:"-"`
}
