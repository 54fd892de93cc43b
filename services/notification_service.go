package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

// Publisher pushes a stored notification to live websocket sessions.
type Publisher interface {
	Publish(userID string, n *entity.Notification)
}

// Notifier is the slice of NotificationService other services depend on.
type Notifier interface {
	Notify(ctx context.Context, userID string, p Payload) error
	Broadcast(ctx context.Context, p Payload) (int, error)
}

type NotificationService struct {
	Repo     *repository.NotificationRepository
	UserRepo *repository.UserRepository
	Sender   PushSender
	Hub      Publisher
	Log      logrus.FieldLogger
	Now      func() time.Time
}

func NewNotificationService(repo *repository.NotificationRepository, users *repository.UserRepository, sender PushSender, hub Publisher, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{Repo: repo, UserRepo: users, Sender: sender, Hub: hub, Log: log, Now: time.Now}
}

// ---------------- tokens ----------------

type RegisterTokenIn struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"omitempty,oneof=ios android web"`
}

func (s *NotificationService) RegisterToken(userID string, in RegisterTokenIn) (*entity.PushToken, error) {
	token := strings.TrimSpace(in.Token)
	if !ValidExpoToken(token) {
		return nil, apperr.Validation("invalid expo push token")
	}
	now := s.Now()
	t := &entity.PushToken{UserID: userID, Token: token, Platform: in.Platform, LastSeenAt: now}
	if err := s.Repo.UpsertToken(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *NotificationService) UnregisterToken(userID, token string) error {
	n, err := s.Repo.DeleteToken(userID, strings.TrimSpace(token))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("push token not found")
	}
	return nil
}

// ---------------- preferences ----------------

func (s *NotificationService) Preferences(userID string) (*entity.NotificationPreference, error) {
	return s.Repo.GetPreference(userID)
}

type UpdatePreferencesIn struct {
	CulturalDiscovery *bool `json:"culturalDiscovery"`
	NewRestaurant     *bool `json:"newRestaurant"`
	FeaturedDish      *bool `json:"featuredDish"`
	Promotional       *bool `json:"promotional"`
	Loyalty           *bool `json:"loyalty"`
	Seasonal          *bool `json:"seasonal"`
	OrderStatus       *bool `json:"orderStatus"`
}

func (s *NotificationService) UpdatePreferences(userID string, in UpdatePreferencesIn) (*entity.NotificationPreference, error) {
	if in.OrderStatus != nil && !*in.OrderStatus {
		return nil, apperr.Validation("order status notifications cannot be disabled")
	}
	p, err := s.Repo.GetPreference(userID)
	if err != nil {
		return nil, err
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.CulturalDiscovery, in.CulturalDiscovery)
	set(&p.NewRestaurant, in.NewRestaurant)
	set(&p.FeaturedDish, in.FeaturedDish)
	set(&p.Promotional, in.Promotional)
	set(&p.Loyalty, in.Loyalty)
	set(&p.Seasonal, in.Seasonal)
	if err := s.Repo.SavePreference(p); err != nil {
		return nil, err
	}
	return p, nil
}

func prefAllows(p *entity.NotificationPreference, t NotificationType) bool {
	switch t {
	case NotifyCulturalDiscovery:
		return p.CulturalDiscovery
	case NotifyNewRestaurant:
		return p.NewRestaurant
	case NotifyFeaturedDish:
		return p.FeaturedDish
	case NotifyPromotional:
		return p.Promotional
	case NotifyLoyalty:
		return p.Loyalty
	case NotifySeasonal:
		return p.Seasonal
	}
	return true
}

// ---------------- delivery ----------------

// ErrMuted is returned by Notify when the user opted out of the type.
var ErrMuted = errors.New("notification type muted by user")

// Notify stores, streams and pushes one notification to one user.
func (s *NotificationService) Notify(ctx context.Context, userID string, p Payload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	pref, err := s.Repo.GetPreference(userID)
	if err != nil {
		return err
	}
	if !prefAllows(pref, p.Type) {
		return ErrMuted
	}

	n, err := s.newRow(userID, p)
	if err != nil {
		return err
	}
	if err := s.Repo.Create(n); err != nil {
		return err
	}
	if s.Hub != nil {
		s.Hub.Publish(userID, n)
	}
	s.push(ctx, []string{userID}, p)
	return nil
}

// Broadcast sends p to every user who has not muted its type and returns how many were addressed.
func (s *NotificationService) Broadcast(ctx context.Context, p Payload) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	column := preferenceColumn[p.Type]
	sent := 0
	err := s.UserRepo.ListIDs(500, func(ids []string) error {
		muted, err := s.Repo.UsersOptedOut(ids, column)
		if err != nil {
			return err
		}
		targets := make([]string, 0, len(ids))
		rows := make([]entity.Notification, 0, len(ids))
		for _, id := range ids {
			if muted[id] {
				continue
			}
			n, err := s.newRow(id, p)
			if err != nil {
				return err
			}
			targets = append(targets, id)
			rows = append(rows, *n)
		}
		if err := s.Repo.CreateBatch(rows); err != nil {
			return err
		}
		if s.Hub != nil {
			for i := range rows {
				s.Hub.Publish(rows[i].UserID, &rows[i])
			}
		}
		s.push(ctx, targets, p)
		sent += len(targets)
		return nil
	})
	if err != nil {
		return sent, err
	}
	s.Log.WithFields(logrus.Fields{"type": p.Type, "recipients": sent}).Info("notification broadcast")
	return sent, nil
}

func (s *NotificationService) newRow(userID string, p Payload) (*entity.Notification, error) {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	return &entity.Notification{
		UserID: userID,
		Type:   string(p.Type),
		Title:  p.Title,
		Body:   p.Body,
		Data:   string(data),
		Target: p.Target(),
	}, nil
}

// push is best effort: the inbox row is already stored, so failures are only logged.
func (s *NotificationService) push(ctx context.Context, userIDs []string, p Payload) {
	if s.Sender == nil || len(userIDs) == 0 {
		return
	}
	tokens, err := s.Repo.TokensForUsers(userIDs)
	if err != nil {
		s.Log.WithError(err).Warn("load push tokens")
		return
	}
	if len(tokens) == 0 {
		return
	}
	data := p.PushData()
	msgs := make([]PushMessage, 0, len(tokens))
	for _, t := range tokens {
		msgs = append(msgs, PushMessage{To: t.Token, Title: p.Title, Body: p.Body, Data: data, Sound: "default", Priority: "high"})
	}
	tickets, err := s.Sender.Send(ctx, msgs)
	if err != nil {
		s.Log.WithError(err).WithField("type", p.Type).Warn("push delivery failed")
	}
	var dead []string
	for i, t := range tickets {
		if i < len(msgs) && t.DeviceGone() {
			dead = append(dead, msgs[i].To)
		}
	}
	if len(dead) > 0 {
		if err := s.Repo.DeleteTokens(dead); err != nil {
			s.Log.WithError(err).Warn("prune dead push tokens")
		} else {
			s.Log.WithField("count", len(dead)).Info("pruned unregistered push tokens")
		}
	}
}

// ---------------- inbox ----------------

// InboxItem is a stored notification with its data decoded.
type InboxItem struct {
	entity.Notification
	Data map[string]string `json:"data"`
}

func (s *NotificationService) Inbox(userID string, unreadOnly bool, limit, offset int) ([]InboxItem, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Repo.List(userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.Repo.UnreadCount(userID)
	if err != nil {
		return nil, 0, err
	}
	out := make([]InboxItem, 0, len(rows))
	for _, n := range rows {
		item := InboxItem{Notification: n}
		if n.Data != "" {
			_ = json.Unmarshal([]byte(n.Data), &item.Data)
		}
		out = append(out, item)
	}
	return out, unread, nil
}

func (s *NotificationService) MarkRead(userID string, id uint) error {
	n, err := s.Repo.MarkRead(userID, id, s.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("notification not found or already read")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID string) (int64, error) {
	return s.Repo.MarkAllRead(userID, s.Now())
}

func (s *NotificationService) Prune(maxAge time.Duration) (int64, error) {
	return s.Repo.DeleteOlderThan(s.Now().Add(-maxAge))
}
