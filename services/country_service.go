package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/repository"
)

type CountryService struct {
	Repo     *repository.CountryRepository
	Rests    *RestaurantService
	Notifier Notifier
	Log      logrus.FieldLogger
}

func NewCountryService(repo *repository.CountryRepository, rests *RestaurantService, n Notifier, log logrus.FieldLogger) *CountryService {
	return &CountryService{Repo: repo, Rests: rests, Notifier: n, Log: log}
}

func (s *CountryService) List(featuredOnly bool) ([]entity.Country, error) {
	return s.Repo.List(featuredOnly)
}

type CountryDetail struct {
	entity.Country
	Restaurants []RestaurantResult `json:"restaurants"`
}

func (s *CountryService) Get(code string) (*CountryDetail, error) {
	c, err := s.Repo.FindByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("country not found")
	}
	if err != nil {
		return nil, err
	}
	page, err := s.Rests.Search(RestaurantSearchIn{Country: c.Code, Limit: 50})
	if err != nil {
		return nil, err
	}
	return &CountryDetail{Country: *c, Restaurants: page.Items}, nil
}

type CountryIn struct {
	Code        string `json:"code" binding:"required,len=2"`
	Name        string `json:"name" binding:"required"`
	Flag        string `json:"flag"`
	Region      string `json:"region"`
	Description string `json:"description"`
	Featured    bool   `json:"featured"`
}

func (s *CountryService) Create(ctx context.Context, in CountryIn) (*entity.Country, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if _, err := s.Repo.FindByCode(code); err == nil {
		return nil, apperr.Conflict("country already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &entity.Country{
		Code: code, Name: strings.TrimSpace(in.Name), Flag: in.Flag,
		Region: in.Region, Description: in.Description, Featured: in.Featured,
	}
	if err := s.Repo.Create(c); err != nil {
		return nil, err
	}
	if c.Featured {
		s.announce(ctx, c)
	}
	return c, nil
}

type UpdateCountryIn struct {
	Name        *string `json:"name"`
	Flag        *string `json:"flag"`
	Region      *string `json:"region"`
	Description *string `json:"description"`
	Featured    *bool   `json:"featured"`
}

// Update edits a country; turning Featured on sends a cultural_discovery broadcast.
func (s *CountryService) Update(ctx context.Context, code string, in UpdateCountryIn) (*entity.Country, error) {
	c, err := s.Repo.FindByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("country not found")
	}
	if err != nil {
		return nil, err
	}
	was := c.Featured
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Flag != nil {
		c.Flag = *in.Flag
	}
	if in.Region != nil {
		c.Region = *in.Region
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Featured != nil {
		c.Featured = *in.Featured
	}
	if c.Name == "" {
		return nil, apperr.Validation("name cannot be empty")
	}
	if err := s.Repo.Update(c); err != nil {
		return nil, err
	}
	if c.Featured && !was {
		s.announce(ctx, c)
	}
	return c, nil
}

func (s *CountryService) announce(ctx context.Context, c *entity.Country) {
	if s.Notifier == nil {
		return
	}
	p := Payload{
		Type:  NotifyCulturalDiscovery,
		Title: "Discover the flavours of " + c.Name,
		Body:  c.Description,
		Data:  map[string]string{"countryCode": c.Code},
	}
	if _, err := s.Notifier.Broadcast(ctx, p); err != nil {
		s.Log.WithError(err).WithField("country", c.Code).Warn("broadcast cultural discovery")
	}
}
