package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/pkg/metrics"
	"github.com/heritageplates/backend/repository"
)

const (
	OrderIDPrefix = "HP"
	// MaxOrderSequence is the largest sequence that fits the 7-digit field.
	MaxOrderSequence = 9_999_999
)

var orderIDPattern = regexp.MustCompile(`^HP-(\d{2})-(\d{7})$`)

// GeneratedOrderID is also the JSON body of the generate-order-id function.
type GeneratedOrderID struct {
	OrderID        string `json:"order_id"`
	Year           int    `json:"year"`
	SequenceNumber int64  `json:"sequence_number"`
}

type OrderIDService struct {
	Repo *repository.OrderIDCounterRepository
	Log  logrus.FieldLogger
	Now  func() time.Time
}

func NewOrderIDService(repo *repository.OrderIDCounterRepository, log logrus.FieldLogger) *OrderIDService {
	return &OrderIDService{Repo: repo, Log: log, Now: time.Now}
}

// FormatOrderID renders HP-YY-XXXXXXX.
func FormatOrderID(year int, seq int64) string {
	return fmt.Sprintf("%s-%02d-%07d", OrderIDPrefix, year%100, seq)
}

// ParseOrderID returns the two-digit year and the sequence of a well-formed ID.
func ParseOrderID(s string) (yy int, seq int64, err error) {
	m := orderIDPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, apperr.Validation("malformed order id")
	}
	yy, _ = strconv.Atoi(m[1])
	seq, _ = strconv.ParseInt(m[2], 10, 64)
	return yy, seq, nil
}

func ValidOrderID(s string) bool { return orderIDPattern.MatchString(s) }

func (s *OrderIDService) Generate(ctx context.Context) (*GeneratedOrderID, error) {
	return s.GenerateTx(ctx, nil)
}

// GenerateTx advances the counter inside tx so a failed checkout rolls the number back.
func (s *OrderIDService) GenerateTx(ctx context.Context, tx *gorm.DB) (*GeneratedOrderID, error) {
	year := s.Now().UTC().Year()

	seq, err := s.Repo.Next(ctx, tx, year)
	if err != nil {
		return nil, fmt.Errorf("advance order id counter: %w", err)
	}
	if seq > MaxOrderSequence {
		s.Log.WithField("year", year).Error("order id sequence exhausted")
		return nil, apperr.Conflict(fmt.Sprintf("order id sequence exhausted for %d", year))
	}

	out := &GeneratedOrderID{OrderID: FormatOrderID(year, seq), Year: year, SequenceNumber: seq}
	metrics.RecordOrderID()
	s.Log.WithFields(logrus.Fields{"order_code": out.OrderID, "sequence": seq}).Debug("order id generated")
	return out, nil
}
