// repository/vendor_repository.go
package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

type VendorRepository struct {
	DB *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{DB: db}
}

// สร้างใบสมัคร
func (r *VendorRepository) Create(v *entity.Vendor) error {
	return r.DB.Create(v).Error
}

func (r *VendorRepository) CountPendingForUser(userID string) (int64, error) {
	var cnt int64
	err := r.DB.Model(&entity.Vendor{}).
		Where("owner_user_id = ? AND status = ?", userID, entity.VendorPending).
		Count(&cnt).Error
	return cnt, err
}

// หาใบสมัครทั้งหมดตามสถานะ
func (r *VendorRepository) FindByStatus(status string) ([]entity.Vendor, error) {
	var apps []entity.Vendor
	err := r.DB.
		Preload("OwnerUser").
		Where("status = ?", status).
		Order("id DESC").
		Find(&apps).Error
	return apps, err
}

func (r *VendorRepository) FindByID(id uint) (*entity.Vendor, error) {
	var v entity.Vendor
	if err := r.DB.Preload("OwnerUser").First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// Approve creates the restaurant, promotes the applicant and closes the application in one transaction.
func (r *VendorRepository) Approve(v *entity.Vendor, rest *entity.Restaurant, adminID string, now time.Time) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		// guard against a concurrent approve/reject
		res := tx.Model(&entity.Vendor{}).
			Where("id = ? AND status = ?", v.ID, entity.VendorPending).
			Updates(map[string]any{"status": entity.VendorApproved, "reviewed_at": now, "reviewed_by_id": adminID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errVendorNotPending
		}

		if err := tx.Create(rest).Error; err != nil {
			return err
		}

		// อัปเกรด role user → owner (admin stays admin)
		if err := tx.Model(&entity.User{}).Where("id = ?", v.OwnerUserID).
			Where("role = '' OR role = ?", entity.RoleCustomer).
			Update("role", entity.RoleOwner).Error; err != nil {
			return err
		}

		if err := tx.Model(&entity.Vendor{}).Where("id = ?", v.ID).Update("restaurant_id", rest.ID).Error; err != nil {
			return err
		}
		v.Status = entity.VendorApproved
		v.ReviewedAt = &now
		v.ReviewedByID = &adminID
		v.RestaurantID = &rest.ID
		return nil
	})
}

func (r *VendorRepository) Reject(v *entity.Vendor, reason, adminID string, now time.Time) error {
	res := r.DB.Model(&entity.Vendor{}).
		Where("id = ? AND status = ?", v.ID, entity.VendorPending).
		Updates(map[string]any{
			"status":         entity.VendorRejected,
			"reviewed_at":    now,
			"reviewed_by_id": adminID,
			"reject_reason":  reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVendorNotPending
	}
	v.Status = entity.VendorRejected
	v.ReviewedAt = &now
	v.ReviewedByID = &adminID
	v.RejectReason = &reason
	return nil
}
