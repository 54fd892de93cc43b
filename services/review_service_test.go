package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

func newReviewService(f *shopFixture) *ReviewService {
	return NewReviewService(f.db, repository.NewReviewRepository(f.db), f.orders.RestRepo, f.orders.Repo)
}

func restaurantRating(t *testing.T, f *shopFixture) (float64, int64) {
	t.Helper()
	var r entity.Restaurant
	require.NoError(t, f.db.First(&r, f.rest.ID).Error)
	return r.Rating, r.ReviewCount
}

func TestReviewUpsertRecomputesRating(t *testing.T) {
	f := newShopFixture(t)
	svc := newReviewService(f)

	_, err := svc.Upsert(f.customer.ID, f.rest.ID, ReviewIn{Rating: 5, Comments: "great"})
	require.NoError(t, err)
	_, err = svc.Upsert(f.stranger.ID, f.rest.ID, ReviewIn{Rating: 2})
	require.NoError(t, err)
	rating, count := restaurantRating(t, f)
	assert.InDelta(t, 3.5, rating, 0.001)
	assert.Equal(t, int64(2), count)

	// a second review from the same user replaces the first
	rev, err := svc.Upsert(f.customer.ID, f.rest.ID, ReviewIn{Rating: 4, Comments: "still good"})
	require.NoError(t, err)
	assert.Equal(t, "still good", rev.Comments)
	rating, count = restaurantRating(t, f)
	assert.InDelta(t, 3.0, rating, 0.001)
	assert.Equal(t, int64(2), count)

	page, err := svc.ListForRestaurant(f.rest.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.ReviewCount)
}

func TestReviewValidation(t *testing.T) {
	f := newShopFixture(t)
	svc := newReviewService(f)

	_, err := svc.Upsert(f.customer.ID, f.rest.ID, ReviewIn{Rating: 6})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = svc.Upsert(f.customer.ID, 9999, ReviewIn{Rating: 3})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	o := f.placeOrder(t)
	_, err = svc.Upsert(f.stranger.ID, f.rest.ID, ReviewIn{Rating: 3, OrderID: &o.ID})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "someone else's order")
	rev, err := svc.Upsert(f.customer.ID, f.rest.ID, ReviewIn{Rating: 3, OrderID: &o.ID})
	require.NoError(t, err)
	require.NotNil(t, rev.OrderID)
	assert.Equal(t, o.ID, *rev.OrderID)
}

func TestReviewDelete(t *testing.T) {
	f := newShopFixture(t)
	svc := newReviewService(f)
	rev, err := svc.Upsert(f.customer.ID, f.rest.ID, ReviewIn{Rating: 5})
	require.NoError(t, err)

	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(svc.Delete(f.stranger.ID, rev.ID)))
	require.NoError(t, svc.Delete(f.customer.ID, rev.ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.Delete(f.customer.ID, rev.ID)))

	rating, count := restaurantRating(t, f)
	assert.Zero(t, rating)
	assert.Zero(t, count)
}

func TestReviewOnePerUserAndRestaurant(t *testing.T) {
	f := newShopFixture(t)
	svc := newReviewService(f)
	o := f.placeOrder(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := svc.Upsert(f.customer.ID, f.rest.ID, ReviewIn{Rating: rating%5 + 1, OrderID: &o.ID})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var n int64
	require.NoError(t, f.db.Model(&entity.Review{}).
		Where("user_id = ? AND restaurant_id = ?", f.customer.ID, f.rest.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	// resubmitting without an order keeps the linked order
	rev, err := svc.Upsert(f.customer.ID, f.rest.ID, ReviewIn{Rating: 1})
	require.NoError(t, err)
	require.NotNil(t, rev.OrderID)
	assert.Equal(t, o.ID, *rev.OrderID)
	assert.Equal(t, 1, rev.Rating)

	// the index itself rejects a second row
	err = f.db.Create(&entity.Review{UserID: f.customer.ID, RestaurantID: f.rest.ID, Rating: 2}).Error
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}
