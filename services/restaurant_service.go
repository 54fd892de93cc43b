// services/restaurant_service.go
package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

const (
	SortRating   = "rating"
	SortDistance = "distance"
	SortNewest   = "newest"

	maxGeoCandidates = 2000
)

type RestaurantService struct {
	Repo      *repository.RestaurantRepository
	DishRepo  *repository.DishRepository
	Countries *repository.CountryRepository
	Notifier  Notifier
	Log       logrus.FieldLogger
}

func NewRestaurantService(repo *repository.RestaurantRepository, dishes *repository.DishRepository, countries *repository.CountryRepository, n Notifier, log logrus.FieldLogger) *RestaurantService {
	return &RestaurantService{Repo: repo, DishRepo: dishes, Countries: countries, Notifier: n, Log: log}
}

type RestaurantSearchIn struct {
	Country  string   `form:"country"`
	Cuisine  string   `form:"cuisine"`
	Q        string   `form:"q"`
	Featured *bool    `form:"featured"`
	OpenNow  bool     `form:"open"`
	Lat      *float64 `form:"lat" binding:"omitempty,gte=-90,lte=90"`
	Lng      *float64 `form:"lng" binding:"omitempty,gte=-180,lte=180"`
	RadiusKm float64  `form:"radiusKm" binding:"omitempty,gt=0,lte=500"`
	Sort     string   `form:"sort" binding:"omitempty,oneof=rating distance newest"`
	Page     int      `form:"page"`
	Limit    int      `form:"limit"`
}

// RestaurantResult carries the distance from the caller when a location was given.
type RestaurantResult struct {
	entity.Restaurant
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

type RestaurantPage struct {
	Items []RestaurantResult `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

func (in *RestaurantSearchIn) hasLocation() bool { return in.Lat != nil && in.Lng != nil }

// Search lists restaurants; with a location and radius the page is computed after the distance filter.
func (s *RestaurantService) Search(in RestaurantSearchIn) (*RestaurantPage, error) {
	if (in.Lat == nil) != (in.Lng == nil) {
		return nil, apperr.Validation("lat and lng must be given together")
	}
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Sort == SortDistance && !in.hasLocation() {
		in.Sort = SortRating
	}

	q := repository.RestaurantQuery{
		CountryCode: in.Country,
		Cuisine:     strings.TrimSpace(in.Cuisine),
		Text:        strings.TrimSpace(in.Q),
		Featured:    in.Featured,
		OpenOnly:    in.OpenNow,
		OrderBy:     in.Sort,
	}

	geo := in.hasLocation() && (in.RadiusKm > 0 || in.Sort == SortDistance)
	if !geo {
		q.Limit, q.Offset = in.Limit, (in.Page-1)*in.Limit
		rows, total, err := s.Repo.Search(q)
		if err != nil {
			return nil, err
		}
		out := make([]RestaurantResult, 0, len(rows))
		for _, r := range rows {
			out = append(out, s.withDistance(r, in.Lat, in.Lng))
		}
		return &RestaurantPage{Items: out, Total: total, Page: in.Page, Limit: in.Limit}, nil
	}

	if in.RadiusKm > 0 {
		minLat, maxLat, minLng, maxLng := BoundingBox(*in.Lat, *in.Lng, in.RadiusKm)
		q.MinLat, q.MaxLat, q.MinLng, q.MaxLng = &minLat, &maxLat, &minLng, &maxLng
	}
	q.Limit = maxGeoCandidates
	rows, _, err := s.Repo.Search(q)
	if err != nil {
		return nil, err
	}

	all := make([]RestaurantResult, 0, len(rows))
	for _, r := range rows {
		res := s.withDistance(r, in.Lat, in.Lng)
		if in.RadiusKm > 0 && (res.DistanceKm == nil || *res.DistanceKm > in.RadiusKm) {
			continue
		}
		all = append(all, res)
	}
	if in.Sort == SortDistance {
		sort.SliceStable(all, func(i, j int) bool {
			di, dj := all[i].DistanceKm, all[j].DistanceKm
			if di == nil || dj == nil {
				return dj == nil && di != nil
			}
			return *di < *dj
		})
	}

	total := int64(len(all))
	start := (in.Page - 1) * in.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + in.Limit
	if end > len(all) {
		end = len(all)
	}
	return &RestaurantPage{Items: all[start:end], Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (s *RestaurantService) withDistance(r entity.Restaurant, lat, lng *float64) RestaurantResult {
	res := RestaurantResult{Restaurant: r}
	if lat != nil && lng != nil && r.Latitude != nil && r.Longitude != nil {
		d := HaversineKm(*lat, *lng, *r.Latitude, *r.Longitude)
		res.DistanceKm = &d
	}
	return res
}

// ดึงร้านตาม ID พร้อมเมนูที่ยังขายอยู่
func (s *RestaurantService) Get(id uint) (*entity.Restaurant, error) {
	r, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("restaurant not found")
	}
	return r, err
}

func (s *RestaurantService) Mine(userID string) ([]entity.Restaurant, error) {
	return s.Repo.ListByOwner(userID)
}

type UpdateRestaurantIn struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	Picture     *string  `json:"picture"`
	Cuisine     *string  `json:"cuisine"`
	CountryCode *string  `json:"countryCode"`
	OpeningTime *string  `json:"openingTime"`
	ClosingTime *string  `json:"closingTime"`
	IsOpen      *bool    `json:"isOpen"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

// Update is allowed for the owner, or any admin.
func (s *RestaurantService) Update(actor *entity.User, id uint, in UpdateRestaurantIn) (*entity.Restaurant, error) {
	if err := s.authorizeOwner(actor, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	str := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	str("name", in.Name)
	str("description", in.Description)
	str("address", in.Address)
	str("picture", in.Picture)
	str("cuisine", in.Cuisine)
	str("opening_time", in.OpeningTime)
	str("closing_time", in.ClosingTime)
	if v, ok := updates["name"]; ok && v == "" {
		return nil, apperr.Validation("name cannot be empty")
	}
	if in.IsOpen != nil {
		updates["is_open"] = *in.IsOpen
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, apperr.Validation("latitude and longitude must be set together")
	}
	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
		updates["longitude"] = *in.Longitude
	}
	if in.CountryCode != nil {
		c, err := s.Countries.FindByCode(*in.CountryCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Validation("unknown country code")
			}
			return nil, err
		}
		updates["country_id"] = c.ID
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}

	if err := s.Repo.Update(id, updates); err != nil {
		return nil, err
	}
	return s.Repo.FindByID(id)
}

// SetFeatured toggles featuring; the first time a restaurant is featured everyone hears about it.
func (s *RestaurantService) SetFeatured(ctx context.Context, id uint, featured bool) (*entity.Restaurant, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	was := r.IsFeatured
	if err := s.Repo.Update(id, map[string]any{"is_featured": featured}); err != nil {
		return nil, err
	}
	r.IsFeatured = featured

	if featured && !was && s.Notifier != nil {
		p := Payload{
			Type:  NotifyNewRestaurant,
			Title: "New on Heritage Plates: " + r.Name,
			Body:  r.Description,
			Data:  map[string]string{"restaurantId": strconv.FormatUint(uint64(r.ID), 10)},
		}
		if _, err := s.Notifier.Broadcast(ctx, p); err != nil {
			s.Log.WithError(err).WithField("restaurant_id", id).Warn("broadcast featured restaurant")
		}
	}
	return r, nil
}

func (s *RestaurantService) authorizeOwner(actor *entity.User, restID uint) error {
	ok, err := s.Repo.Exists(restID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("restaurant not found")
	}
	if actor.Role == entity.RoleAdmin {
		return nil
	}
	owned, err := s.Repo.IsOwnedBy(restID, actor.ID)
	if err != nil {
		return err
	}
	if !owned {
		return apperr.Forbidden("not your restaurant")
	}
	return nil
}

// ---------------- discover feed ----------------

type DiscoverFeed struct {
	FeaturedCountries   []entity.Country   `json:"featuredCountries"`
	FeaturedRestaurants []RestaurantResult `json:"featuredRestaurants"`
	FeaturedDishes      []entity.Dish      `json:"featuredDishes"`
	Newest              []RestaurantResult `json:"newest"`
}

// Discover builds the home feed; with a location the restaurant rows are ordered nearest first.
func (s *RestaurantService) Discover(lat, lng *float64) (*DiscoverFeed, error) {
	countries, err := s.Countries.List(true)
	if err != nil {
		return nil, err
	}
	yes := true
	sortBy := SortRating
	if lat != nil && lng != nil {
		sortBy = SortDistance
	}
	featured, err := s.Search(RestaurantSearchIn{Featured: &yes, Lat: lat, Lng: lng, Sort: sortBy, Limit: 10})
	if err != nil {
		return nil, err
	}
	newest, err := s.Search(RestaurantSearchIn{Lat: lat, Lng: lng, Sort: SortNewest, Limit: 10})
	if err != nil {
		return nil, err
	}
	dishes, err := s.DishRepo.Featured(12)
	if err != nil {
		return nil, err
	}
	return &DiscoverFeed{
		FeaturedCountries:   countries,
		FeaturedRestaurants: featured.Items,
		FeaturedDishes:      dishes,
		Newest:              newest.Items,
	}, nil
}
