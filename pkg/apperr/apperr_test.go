package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindValidation, KindOf(Validation("bad")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.Equal(t, KindNetwork, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("outer: %w", Conflict("dup"))))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindAuthentication))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindAuthorization))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindConflict))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(KindRateLimited))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindUnknown))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "cart is empty", Message(Validation("cart is empty")))
	assert.Equal(t, "not found", Message(gorm.ErrRecordNotFound))
	assert.Equal(t, "already exists", Message(gorm.ErrDuplicatedKey))
	wrapped := Wrap(KindNetwork, "upstream failed", errors.New("dial tcp"))
	assert.Equal(t, "upstream failed", Message(wrapped))
	assert.Equal(t, "upstream failed: dial tcp", wrapped.Error())
	assert.ErrorContains(t, errors.Unwrap(wrapped), "dial tcp")
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 350*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 350*time.Millisecond, p.Backoff(10))
}

func TestRetry(t *testing.T) {
	p := Policy{MaxAttempts: 4, InitialBackoff: time.Millisecond, Multiplier: 1}

	t.Run("retries network errors until success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), p, func(context.Context) error {
			calls++
			if calls < 3 {
				return Network("flaky", errors.New("reset"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non retryable", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), p, func(context.Context) error {
			calls++
			return Validation("nope")
		})
		assert.Equal(t, KindValidation, KindOf(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), p, func(context.Context) error {
			calls++
			return RateLimited("slow down")
		})
		assert.Error(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("honours context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := Policy{MaxAttempts: 5, InitialBackoff: time.Hour}
		calls := 0
		err := Retry(ctx, slow, func(context.Context) error {
			calls++
			return Network("down", nil)
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
