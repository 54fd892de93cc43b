package configs

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/heritageplates/backend/entity"
)

var db *gorm.DB

func DB() *gorm.DB {
	return db
}

// OpenDatabase opens sqlite (file path) or postgres (DSN).
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	// TranslateError turns unique violations into gorm.ErrDuplicatedKey on both drivers
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
}

func ConnectionDB(cfg *Config) error {
	database, err := OpenDatabase(cfg.DBDriver, cfg.DBSource)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	db = database
	return nil
}

// Migrate the schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Country{},
		&entity.Restaurant{}, &entity.Dish{},
		&entity.Cart{}, &entity.CartItem{},
		&entity.OrderStatus{}, &entity.Order{}, &entity.OrderItem{},
		&entity.OrderIDCounter{},
		&entity.Promotion{},
		&entity.Review{},
		&entity.Vendor{},
		&entity.PushToken{}, &entity.Notification{}, &entity.NotificationPreference{},
		&entity.ImageCacheEntry{},
	)
}
