package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/pkg/testdb"
	"github.com/heritageplates/backend/repository"
)

type adminList []string

func (a adminList) IsAdminEmail(email string) bool {
	for _, e := range a {
		if e == email {
			return true
		}
	}
	return false
}

func TestEnsureProfile(t *testing.T) {
	db := testdb.Open(t)
	svc := NewAuthService(repository.NewUserRepository(db), adminList{"boss@example.com"})

	u, err := svc.EnsureProfile("9b2f-uuid", " Diner@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "diner@example.com", u.Email)
	assert.Equal(t, entity.RoleCustomer, u.Role)

	again, err := svc.EnsureProfile("9b2f-uuid", "diner@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.CreatedAt.Unix(), again.CreatedAt.Unix())

	_, err = svc.EnsureProfile("another-uuid", "diner@example.com")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	admin, err := svc.EnsureProfile("boss-uuid", "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, admin.Role)

	_, err = svc.EnsureProfile("", "x@example.com")
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestUpdateProfile(t *testing.T) {
	db := testdb.Open(t)
	svc := NewAuthService(repository.NewUserRepository(db), nil)
	_, err := svc.EnsureProfile("u-1", "a@example.com")
	require.NoError(t, err)

	name, lat := "Malee", 13.75
	_, err = svc.UpdateProfile("u-1", UpdateProfileIn{Latitude: &lat})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	lng, done := 100.5, true
	u, err := svc.UpdateProfile("u-1", UpdateProfileIn{FirstName: &name, Latitude: &lat, Longitude: &lng, OnboardingCompleted: &done})
	require.NoError(t, err)
	assert.Equal(t, "Malee", u.FirstName)
	assert.True(t, u.HasLocation())
	assert.True(t, u.OnboardingCompleted)
}
