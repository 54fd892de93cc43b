package routes

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/configs"
	"github.com/heritageplates/backend/middlewares"
	"github.com/heritageplates/backend/repository"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/ws"
)

// Services is the wired application graph shared by routes, jobs and main.
type Services struct {
	Auth          *services.AuthService
	OrderIDs      *services.OrderIDService
	Notifications *services.NotificationService
	Images        *services.ImageCacheService
	Restaurants   *services.RestaurantService
	Countries     *services.CountryService
	Dishes        *services.DishService
	Cart          *services.CartService
	Orders        *services.OrderService
	Reviews       *services.ReviewService
	Promotions    *services.PromotionService
	Vendors       *services.VendorService

	Hub           *ws.NotificationHub
	OrderIDLimit  *middlewares.RateLimiter
	ImageLimit    *middlewares.RateLimiter
	Authenticator *middlewares.Authenticator
}

// NewServices builds every repository and service on top of db.
// sender may be nil (push disabled); imageStore picks where the cache index lives.
func NewServices(db *gorm.DB, cfg *configs.Config, log *logrus.Logger, hub *ws.NotificationHub, sender services.PushSender, imageStore services.ImageIndexStore) *Services {
	users := repository.NewUserRepository(db)
	countries := repository.NewCountryRepository(db)
	rests := repository.NewRestaurantRepository(db)
	dishes := repository.NewDishRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	counters := repository.NewOrderIDCounterRepository(db)
	promos := repository.NewPromotionRepository(db)
	reviews := repository.NewReviewRepository(db)
	vendors := repository.NewVendorRepository(db)
	notifs := repository.NewNotificationRepository(db)

	s := &Services{Hub: hub}
	s.Auth = services.NewAuthService(users, cfg)
	s.OrderIDs = services.NewOrderIDService(counters, log.WithField("component", "order_id"))

	var pub services.Publisher
	if hub != nil {
		pub = hub
	}
	s.Notifications = services.NewNotificationService(notifs, users, sender, pub, log.WithField("component", "notifications"))

	s.Images = services.NewImageCacheService(imageStore, services.ImageCacheOptions{
		Dir:                  cfg.ImageCacheDir,
		MaxBytes:             cfg.ImageCacheMaxBytes,
		MaxAge:               cfg.ImageCacheMaxAge,
		AllowedHosts:         cfg.ImageAllowedHosts,
		AllowPrivateNetworks: cfg.ImageAllowPrivateNetworks,
	}, log.WithField("component", "image_cache"))

	s.Restaurants = services.NewRestaurantService(rests, dishes, countries, s.Notifications, log.WithField("component", "restaurants"))
	s.Countries = services.NewCountryService(countries, s.Restaurants, s.Notifications, log.WithField("component", "countries"))
	s.Dishes = services.NewDishService(dishes, s.Restaurants, countries, s.Notifications, log.WithField("component", "dishes"))
	s.Cart = services.NewCartService(db, carts, dishes)
	s.Orders = services.NewOrderService(db, services.OrderDeps{
		Repo:      orders,
		CartRepo:  carts,
		DishRepo:  dishes,
		RestRepo:  rests,
		PromoRepo: promos,
		UserRepo:  users,
		IDs:       s.OrderIDs,
		Notifier:  s.Notifications,
	}, cfg.DeliveryFee, cfg.LoyaltyPointUnit, log.WithField("component", "orders"))
	s.Reviews = services.NewReviewService(db, reviews, rests, orders)
	s.Promotions = services.NewPromotionService(promos, s.Notifications, log.WithField("component", "promotions"))
	s.Vendors = services.NewVendorService(vendors, countries, s.Notifications, log.WithField("component", "vendors"))

	s.OrderIDLimit = middlewares.NewRateLimiter(cfg.OrderIDRatePerSec, cfg.OrderIDBurst, log.WithField("component", "rate_limit"))
	s.ImageLimit = middlewares.NewRateLimiter(cfg.ImageRatePerSec, cfg.ImageBurst, log.WithField("component", "rate_limit"))
	s.Authenticator = middlewares.NewAuthenticator(cfg.JWTSecret, s.Auth)
	return s
}
