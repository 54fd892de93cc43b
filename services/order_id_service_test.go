package services

import (
	"context"
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

func newOrderIDService(t *testing.T) (*OrderIDService, *repository.OrderIDCounterRepository) {
	t.Helper()
	db := testdb.Open(t)
	repo := repository.NewOrderIDCounterRepository(db)
	svc := NewOrderIDService(repo, logger.Discard())
	return svc, repo
}

func TestFormatAndParseOrderID(t *testing.T) {
	assert.Equal(t, "HP-25-0000001", FormatOrderID(2025, 1))
	assert.Equal(t, "HP-30-9999999", FormatOrderID(2030, MaxOrderSequence))

	yy, seq, err := ParseOrderID("HP-25-0001234")
	require.NoError(t, err)
	assert.Equal(t, 25, yy)
	assert.Equal(t, int64(1234), seq)

	for _, bad := range []string{"", "HP-2025-0000001", "HP-25-123", "XX-25-0000001", "HP-25-00000012", "hp-25-0000001"} {
		_, _, err := ParseOrderID(bad)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), bad)
		assert.False(t, ValidOrderID(bad), bad)
	}
}

func TestGenerateIsSequential(t *testing.T) {
	svc, _ := newOrderIDService(t)
	svc.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	var prev int64
	for i := 1; i <= 5; i++ {
		out, err := svc.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2025, out.Year)
		assert.Equal(t, int64(i), out.SequenceNumber)
		assert.Greater(t, out.SequenceNumber, prev)
		assert.Equal(t, FormatOrderID(2025, int64(i)), out.OrderID)
		prev = out.SequenceNumber
	}
}

func TestGenerateResetsPerYear(t *testing.T) {
	svc, repo := newOrderIDService(t)
	now := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := svc.Generate(context.Background())
		require.NoError(t, err)
	}
	now = time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)
	out, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HP-26-0000001", out.OrderID)

	cur, err := repo.Current(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cur)
}

func TestGenerateConcurrentUnique(t *testing.T) {
	svc, _ := newOrderIDService(t)

	const workers, each = 8, 10
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	errs := make(chan error, workers*each)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				out, err := svc.Generate(context.Background())
				if err != nil {
					errs <- err
					continue
				}
				mu.Lock()
				seen[out.OrderID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, seen, workers*each)
}

func TestGenerateOverflow(t *testing.T) {
	svc, repo := newOrderIDService(t)
	svc.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, repo.DB.Create(&entity.OrderIDCounter{Year: 2025, CurrentNumber: MaxOrderSequence}).Error)

	_, err := svc.Generate(context.Background())
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}
