// Package testdb opens throwaway sqlite databases and fixtures for package tests.
package testdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/configs"
	"github.com/heritageplates/backend/entity"
)

// Open returns a migrated and seeded database living in t's temp dir.
// busy_timeout + immediate transactions let concurrent tests queue instead of failing with SQLITE_BUSY.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_txlock=immediate"
	db, err := configs.OpenDatabase("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, configs.Migrate(db))
	require.NoError(t, configs.SeedLookups(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func User(t testing.TB, db *gorm.DB, id, email, role string) *entity.User {
	t.Helper()
	u := &entity.User{ID: id, Email: email, Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Restaurant(t testing.TB, db *gorm.DB, ownerID, name string) *entity.Restaurant {
	t.Helper()
	r := &entity.Restaurant{Name: name, OwnerID: ownerID, IsOpen: true, Cuisine: "thai"}
	require.NoError(t, db.Create(r).Error)
	return r
}

func Dish(t testing.TB, db *gorm.DB, restID uint, name string, price int64) *entity.Dish {
	t.Helper()
	d := &entity.Dish{Name: name, Price: price, RestaurantID: restID, IsAvailable: true}
	require.NoError(t, db.Create(d).Error)
	return d
}
