package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heritageplates/backend/entity"
)

type NotificationRepository struct{ DB *gorm.DB }

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

// ---------------- Push tokens ----------------

// UpsertToken binds token to userID; a token moving between accounts follows the latest login.
func (r *NotificationRepository) UpsertToken(t *entity.PushToken) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "last_seen_at", "updated_at", "deleted_at"}),
	}).Create(t).Error
}

func (r *NotificationRepository) DeleteToken(userID, token string) (int64, error) {
	res := r.DB.Unscoped().Where("user_id = ? AND token = ?", userID, token).Delete(&entity.PushToken{})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) DeleteTokens(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.DB.Unscoped().Where("token IN ?", tokens).Delete(&entity.PushToken{}).Error
}

func (r *NotificationRepository) TokensForUsers(userIDs []string) ([]entity.PushToken, error) {
	var out []entity.PushToken
	if len(userIDs) == 0 {
		return out, nil
	}
	err := r.DB.Where("user_id IN ?", userIDs).Find(&out).Error
	return out, err
}

// ---------------- Preferences ----------------

func (r *NotificationRepository) GetPreference(userID string) (*entity.NotificationPreference, error) {
	var p entity.NotificationPreference
	err := r.DB.Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d := entity.DefaultNotificationPreference(userID)
		return &d, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *NotificationRepository) SavePreference(p *entity.NotificationPreference) error {
	return r.DB.Save(p).Error
}

// UsersOptedOut returns which of userIDs turned column off. Users without a row use the defaults (on).
func (r *NotificationRepository) UsersOptedOut(userIDs []string, column string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(userIDs) == 0 || column == "" {
		return out, nil
	}
	var ids []string
	if err := r.DB.Model(&entity.NotificationPreference{}).
		Where("user_id IN ?", userIDs).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: false}).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ---------------- Inbox ----------------

func (r *NotificationRepository) Create(n *entity.Notification) error {
	return r.DB.Create(n).Error
}

func (r *NotificationRepository) CreateBatch(rows []entity.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(rows, 200).Error
}

func (r *NotificationRepository) List(userID string, unreadOnly bool, limit, offset int) ([]entity.Notification, error) {
	var out []entity.Notification
	q := r.DB.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

func (r *NotificationRepository) UnreadCount(userID string) (int64, error) {
	var cnt int64
	err := r.DB.Model(&entity.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&cnt).Error
	return cnt, err
}

func (r *NotificationRepository) MarkRead(userID string, id uint, now time.Time) (int64, error) {
	res := r.DB.Model(&entity.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) MarkAllRead(userID string, now time.Time) (int64, error) {
	res := r.DB.Model(&entity.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.DB.Unscoped().Where("created_at < ?", cutoff).Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}
