package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

type ReviewService struct {
	DB        *gorm.DB
	Repo      *repository.ReviewRepository
	RestRepo  *repository.RestaurantRepository
	OrderRepo *repository.OrderRepository
	Now       func() time.Time
}

func NewReviewService(db *gorm.DB, repo *repository.ReviewRepository, rests *repository.RestaurantRepository, orders *repository.OrderRepository) *ReviewService {
	return &ReviewService{DB: db, Repo: repo, RestRepo: rests, OrderRepo: orders, Now: time.Now}
}

type ReviewIn struct {
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Comments string `json:"comments" binding:"max=2000"`
	OrderID  *uint  `json:"orderId"`
}

// Upsert keeps one review per user and restaurant; a second submission replaces the first.
func (s *ReviewService) Upsert(userID string, restID uint, in ReviewIn) (*entity.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	ok, err := s.RestRepo.Exists(restID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("restaurant not found")
	}
	if in.OrderID != nil {
		owns, err := s.OrderRepo.UserOwnsOrder(userID, *in.OrderID, restID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, apperr.Validation("order does not belong to you and this restaurant")
		}
	}

	var out *entity.Review
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		rev := &entity.Review{
			UserID:       userID,
			RestaurantID: restID,
			Rating:       in.Rating,
			Comments:     strings.TrimSpace(in.Comments),
			ReviewDate:   s.Now(),
			OrderID:      in.OrderID,
		}
		if err := s.Repo.Upsert(tx, rev); err != nil {
			return err
		}
		stored, err := s.Repo.FindByUserAndRestaurant(tx, userID, restID)
		if err != nil {
			return err
		}
		out = stored
		return s.RestRepo.RecomputeRating(tx, restID)
	})
	return out, err
}

type RestaurantReviews struct {
	Rating      float64         `json:"rating"`
	ReviewCount int64           `json:"reviewCount"`
	Items       []entity.Review `json:"items"`
}

func (s *ReviewService) ListForRestaurant(restID uint, limit, offset int) (*RestaurantReviews, error) {
	r, err := s.RestRepo.FindByID(restID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("restaurant not found")
	}
	if err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	items, err := s.Repo.ListForRestaurant(restID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &RestaurantReviews{Rating: r.Rating, ReviewCount: r.ReviewCount, Items: items}, nil
}

func (s *ReviewService) ListMine(userID string, limit, offset int) ([]entity.Review, error) {
	limit, offset = clampPage(limit, offset)
	return s.Repo.ListForUser(userID, limit, offset)
}

func (s *ReviewService) Delete(userID string, id uint) error {
	rev, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("review not found")
	}
	if err != nil {
		return err
	}
	if rev.UserID != userID {
		return apperr.Forbidden("not your review")
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.Repo.Delete(tx, id); err != nil {
			return err
		}
		return s.RestRepo.RecomputeRating(tx, rev.RestaurantID)
	})
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
