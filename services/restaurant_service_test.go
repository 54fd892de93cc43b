package services

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/pkg/logger"
	"github.com/heritageplates/backend/pkg/testdb"
	"github.com/heritageplates/backend/repository"
)

type discoveryFixture struct {
	svc      *RestaurantService
	notifier *recordingNotifier
	bangkok  *entity.Restaurant
	chiang   *entity.Restaurant
	noGeo    *entity.Restaurant
}

func newDiscoveryFixture(t *testing.T) *discoveryFixture {
	db := testdb.Open(t)
	countries := repository.NewCountryRepository(db)
	th, err := countries.FindByCode("th")
	require.NoError(t, err)
	jp, err := countries.FindByCode("JP")
	require.NoError(t, err)

	mk := func(r entity.Restaurant) *entity.Restaurant {
		require.NoError(t, db.Create(&r).Error)
		return &r
	}
	f := &discoveryFixture{notifier: &recordingNotifier{}}
	f.bangkok = mk(entity.Restaurant{
		Name: "Baan Krua", Cuisine: "thai", CountryID: &th.ID, OwnerID: "owner-1",
		Latitude: ptr(13.7563), Longitude: ptr(100.5018), IsOpen: true, IsFeatured: true, Rating: 4.5, ReviewCount: 10,
	})
	f.chiang = mk(entity.Restaurant{
		Name: "Chiang Mai Izakaya", Cuisine: "japanese", CountryID: &jp.ID, OwnerID: "owner-2",
		Latitude: ptr(18.7883), Longitude: ptr(98.9853), IsOpen: true, Rating: 4.9, ReviewCount: 3,
	})
	f.noGeo = mk(entity.Restaurant{Name: "Ghost Kitchen", Cuisine: "thai", OwnerID: "owner-3", Rating: 3})

	f.svc = NewRestaurantService(repository.NewRestaurantRepository(db), repository.NewDishRepository(db), countries, f.notifier, logger.Discard())
	return f
}

func ptr[T any](v T) *T { return &v }

func ids(items []RestaurantResult) []uint {
	out := make([]uint, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestSearchFilters(t *testing.T) {
	f := newDiscoveryFixture(t)

	page, err := f.svc.Search(RestaurantSearchIn{})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.chiang.ID, f.bangkok.ID, f.noGeo.ID}, ids(page.Items), "rating order")
	assert.EqualValues(t, 3, page.Total)

	page, err = f.svc.Search(RestaurantSearchIn{Country: "th"})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.bangkok.ID}, ids(page.Items))

	page, err = f.svc.Search(RestaurantSearchIn{Q: "izakaya"})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.chiang.ID}, ids(page.Items))

	page, err = f.svc.Search(RestaurantSearchIn{Cuisine: "THAI", OpenNow: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.bangkok.ID}, ids(page.Items))

	page, err = f.svc.Search(RestaurantSearchIn{Sort: SortNewest, Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.chiang.ID}, ids(page.Items))
	assert.EqualValues(t, 3, page.Total)
}

func TestSearchByDistance(t *testing.T) {
	f := newDiscoveryFixture(t)
	lat, lng := 13.75, 100.50

	page, err := f.svc.Search(RestaurantSearchIn{Lat: &lat, Lng: &lng, RadiusKm: 50})
	require.NoError(t, err)
	require.Equal(t, []uint{f.bangkok.ID}, ids(page.Items))
	require.NotNil(t, page.Items[0].DistanceKm)
	assert.Less(t, *page.Items[0].DistanceKm, 2.0)

	page, err = f.svc.Search(RestaurantSearchIn{Lat: &lat, Lng: &lng, Sort: SortDistance})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.bangkok.ID, f.chiang.ID, f.noGeo.ID}, ids(page.Items), "unknown location sorts last")
	assert.Nil(t, page.Items[2].DistanceKm)

	_, err = f.svc.Search(RestaurantSearchIn{Lat: &lat})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDiscoverFeed(t *testing.T) {
	f := newDiscoveryFixture(t)

	feed, err := f.svc.Discover(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.bangkok.ID}, ids(feed.FeaturedRestaurants))
	assert.Equal(t, f.noGeo.ID, feed.Newest[0].ID)
	codes := make([]string, 0, len(feed.FeaturedCountries))
	for _, c := range feed.FeaturedCountries {
		codes = append(codes, c.Code)
	}
	assert.Contains(t, codes, "TH")
	assert.Contains(t, codes, "JP")
}

func TestSetFeaturedAnnouncesOnce(t *testing.T) {
	f := newDiscoveryFixture(t)
	ctx := context.Background()

	r, err := f.svc.SetFeatured(ctx, f.chiang.ID, true)
	require.NoError(t, err)
	assert.True(t, r.IsFeatured)
	_, err = f.svc.SetFeatured(ctx, f.chiang.ID, true)
	require.NoError(t, err)

	require.Len(t, f.notifier.broadcast, 1)
	p := f.notifier.broadcast[0]
	assert.Equal(t, NotifyNewRestaurant, p.Type)
	assert.Equal(t, "/restaurants/"+strconv.FormatUint(uint64(f.chiang.ID), 10), p.Target())

	_, err = f.svc.SetFeatured(ctx, 999, true)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
