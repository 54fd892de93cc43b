package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/pkg/logger"
	"github.com/heritageplates/backend/pkg/testdb"
	"github.com/heritageplates/backend/repository"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []PushMessage
	gone map[string]bool
	err  error
}

func (f *fakeSender) Send(_ context.Context, msgs []PushMessage) ([]PushTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msgs...)
	tickets := make([]PushTicket, len(msgs))
	for i, m := range msgs {
		tickets[i].Status = "ok"
		if f.gone[m.To] {
			tickets[i].Status = "error"
			tickets[i].Details.Error = "DeviceNotRegistered"
		}
	}
	return tickets, f.err
}

type fakePublisher struct {
	mu   sync.Mutex
	byID map[string][]*entity.Notification
}

func (f *fakePublisher) Publish(userID string, n *entity.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID == nil {
		f.byID = map[string][]*entity.Notification{}
	}
	f.byID[userID] = append(f.byID[userID], n)
}

func (f *fakePublisher) count(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID[userID])
}

type notifFixture struct {
	svc    *NotificationService
	repo   *repository.NotificationRepository
	sender *fakeSender
	hub    *fakePublisher
}

func newNotificationFixture(t *testing.T) *notifFixture {
	t.Helper()
	db := testdb.Open(t)
	f := &notifFixture{
		repo:   repository.NewNotificationRepository(db),
		sender: &fakeSender{gone: map[string]bool{}},
		hub:    &fakePublisher{},
	}
	f.svc = NewNotificationService(f.repo, repository.NewUserRepository(db), f.sender, f.hub, logger.Discard())
	testdb.User(t, db, "u-1", "a@example.com", entity.RoleCustomer)
	testdb.User(t, db, "u-2", "b@example.com", entity.RoleCustomer)
	testdb.User(t, db, "u-3", "c@example.com", entity.RoleCustomer)
	return f
}

func orderPayload(id string) Payload {
	return Payload{Type: NotifyOrderStatus, Title: "Confirmed", Data: map[string]string{"orderId": id}}
}

func TestNotifyStoresPublishesAndPushes(t *testing.T) {
	f := newNotificationFixture(t)
	_, err := f.svc.RegisterToken("u-1", RegisterTokenIn{Token: "ExponentPushToken[phone]", Platform: "ios"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Notify(context.Background(), "u-1", orderPayload("12")))

	items, unread, err := f.svc.Inbox("u-1", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, "/orders/12", items[0].Target)
	assert.Equal(t, "12", items[0].Data["orderId"])

	assert.Equal(t, 1, f.hub.count("u-1"))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "ExponentPushToken[phone]", f.sender.sent[0].To)
	assert.Equal(t, "order_status", f.sender.sent[0].Data["type"])
	assert.Equal(t, "high", f.sender.sent[0].Priority)
}

func TestNotifyRespectsPreferences(t *testing.T) {
	f := newNotificationFixture(t)
	off := false
	_, err := f.svc.UpdatePreferences("u-1", UpdatePreferencesIn{Promotional: &off})
	require.NoError(t, err)

	err = f.svc.Notify(context.Background(), "u-1", Payload{Type: NotifyPromotional, Title: "Sale"})
	assert.True(t, errors.Is(err, ErrMuted))

	// order updates always go through
	require.NoError(t, f.svc.Notify(context.Background(), "u-1", orderPayload("1")))
	_, unread, err := f.svc.Inbox("u-1", true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestOrderStatusCannotBeMuted(t *testing.T) {
	f := newNotificationFixture(t)
	off := false
	_, err := f.svc.UpdatePreferences("u-1", UpdatePreferencesIn{OrderStatus: &off})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	on := true
	p, err := f.svc.UpdatePreferences("u-1", UpdatePreferencesIn{OrderStatus: &on, Seasonal: &off})
	require.NoError(t, err)
	assert.False(t, p.Seasonal)
	assert.True(t, p.Loyalty)
}

func TestBroadcastSkipsOptedOutUsers(t *testing.T) {
	f := newNotificationFixture(t)
	off := false
	_, err := f.svc.UpdatePreferences("u-2", UpdatePreferencesIn{NewRestaurant: &off})
	require.NoError(t, err)

	n, err := f.svc.Broadcast(context.Background(), Payload{
		Type: NotifyNewRestaurant, Title: "New: Baan Thai", Data: map[string]string{"restaurantId": "4"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[string]int64{"u-1": 1, "u-2": 0, "u-3": 1} {
		_, unread, err := f.svc.Inbox(id, true, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, want, unread, id)
		assert.Equal(t, int(want), f.hub.count(id), id)
	}
}

func TestBroadcastValidatesPayload(t *testing.T) {
	f := newNotificationFixture(t)
	_, err := f.svc.Broadcast(context.Background(), Payload{Type: NotifyFeaturedDish, Title: "x"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDeadTokensArePruned(t *testing.T) {
	f := newNotificationFixture(t)
	for _, tok := range []string{"ExponentPushToken[live]", "ExponentPushToken[gone]"} {
		_, err := f.svc.RegisterToken("u-1", RegisterTokenIn{Token: tok})
		require.NoError(t, err)
	}
	f.sender.gone["ExponentPushToken[gone]"] = true

	require.NoError(t, f.svc.Notify(context.Background(), "u-1", orderPayload("3")))

	tokens, err := f.repo.TokensForUsers([]string{"u-1"})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "ExponentPushToken[live]", tokens[0].Token)
}

func TestPushFailureDoesNotFailNotify(t *testing.T) {
	f := newNotificationFixture(t)
	_, err := f.svc.RegisterToken("u-1", RegisterTokenIn{Token: "ExponentPushToken[a]"})
	require.NoError(t, err)
	f.sender.err = apperr.Network("expo down", nil)

	require.NoError(t, f.svc.Notify(context.Background(), "u-1", orderPayload("9")))
	_, unread, err := f.svc.Inbox("u-1", true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestTokenRegistration(t *testing.T) {
	f := newNotificationFixture(t)

	_, err := f.svc.RegisterToken("u-1", RegisterTokenIn{Token: "not-a-token"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// the same device signing into another account moves the token
	_, err = f.svc.RegisterToken("u-1", RegisterTokenIn{Token: "ExponentPushToken[shared]"})
	require.NoError(t, err)
	_, err = f.svc.RegisterToken("u-2", RegisterTokenIn{Token: "ExponentPushToken[shared]"})
	require.NoError(t, err)
	tokens, err := f.repo.TokensForUsers([]string{"u-1", "u-2"})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "u-2", tokens[0].UserID)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(f.svc.UnregisterToken("u-1", "ExponentPushToken[shared]")))
	assert.NoError(t, f.svc.UnregisterToken("u-2", "ExponentPushToken[shared]"))
}

func TestInboxReadState(t *testing.T) {
	f := newNotificationFixture(t)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, f.svc.Notify(context.Background(), "u-1", orderPayload(id)))
	}
	items, unread, err := f.svc.Inbox("u-1", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int64(3), unread)
	assert.Equal(t, "3", items[0].Data["orderId"], "newest first")

	require.NoError(t, f.svc.MarkRead("u-1", items[0].ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(f.svc.MarkRead("u-1", items[0].ID)))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(f.svc.MarkRead("u-2", items[1].ID)))

	n, err := f.svc.MarkAllRead("u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, unread, err = f.svc.Inbox("u-1", true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestPruneOldNotifications(t *testing.T) {
	f := newNotificationFixture(t)
	require.NoError(t, f.svc.Notify(context.Background(), "u-1", orderPayload("1")))

	f.svc.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	n, err := f.svc.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
