package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/heritageplates/backend/configs"
	"github.com/heritageplates/backend/controllers"
	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/middlewares"
	"github.com/heritageplates/backend/pkg/metrics"
)

func RegisterRoutes(r *gin.Engine, s *Services, cfg *configs.Config, log logrus.FieldLogger) {
	r.Use(middlewares.Recovery(log), middlewares.RequestLogger(log), metrics.GinMiddleware(), middlewares.CORSMiddleware(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Controllers
	authCtrl := controllers.NewAuthController(s.Auth)
	orderIDCtrl := controllers.NewOrderIDController(s.OrderIDs, log)
	restCtrl := controllers.NewRestaurantController(s.Restaurants)
	countryCtrl := controllers.NewCountryController(s.Countries)
	dishCtrl := controllers.NewDishController(s.Dishes)
	cartCtrl := controllers.NewCartController(s.Cart)
	orderCtrl := controllers.NewOrderController(s.Orders)
	reviewCtrl := controllers.NewReviewController(s.Reviews)
	promoCtrl := controllers.NewPromotionController(s.Promotions)
	vendorCtrl := controllers.NewVendorController(s.Vendors)
	notifCtrl := controllers.NewNotificationController(s.Notifications)
	imageCtrl := controllers.NewImageController(s.Images)

	auth := s.Authenticator.Require
	adminOnly := auth(entity.RoleAdmin)

	// Edge functions (public, rate limited)
	fn := r.Group("/functions/v1", middlewares.EdgeCORS(), s.OrderIDLimit.Handler())
	{
		fn.Any("/generate-order-id", orderIDCtrl.Generate)
	}

	r.GET("/integrations", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true, "data": cfg.Integrations()}) })

	// Discovery (public)
	r.GET("/discover", restCtrl.Discover)
	r.GET("/countries", countryCtrl.List)
	r.GET("/countries/:code", countryCtrl.Detail)
	r.GET("/restaurants", restCtrl.List)
	r.GET("/restaurants/:id", restCtrl.Detail)
	r.GET("/restaurants/:id/dishes", dishCtrl.ListByRestaurant)
	r.GET("/restaurants/:id/reviews", reviewCtrl.ListForRestaurant)
	r.GET("/dishes/:id", dishCtrl.Detail)
	r.GET("/promotions", promoCtrl.ListActive)
	r.GET("/promotions/:code", promoCtrl.Lookup)

	// Images (public, rate limited)
	img := r.Group("/images", s.ImageLimit.Handler())
	{
		img.GET("", imageCtrl.Get)
		img.GET("/progressive", imageCtrl.Progressive)
	}

	// Auth (protected)
	a := r.Group("/auth", auth())
	{
		a.GET("/me", authCtrl.Me)
		a.PATCH("/me", authCtrl.UpdateMe)
	}

	// User
	u := r.Group("/", auth())
	{
		u.GET("/cart", cartCtrl.Get)
		u.DELETE("/cart", cartCtrl.Clear)
		u.POST("/cart/items", cartCtrl.Add)
		u.PATCH("/cart/items/:itemId", cartCtrl.UpdateQty)
		u.DELETE("/cart/items/:itemId", cartCtrl.RemoveItem)

		u.POST("/orders", orderCtrl.Create)
		u.POST("/orders/checkout", orderCtrl.Checkout)
		u.GET("/orders", orderCtrl.ListForMe)
		u.GET("/orders/:ref", orderCtrl.Detail)
		u.PATCH("/orders/:ref/status", orderCtrl.UpdateStatus)
		u.POST("/orders/:ref/cancel", orderCtrl.Cancel)

		u.PUT("/restaurants/:id/reviews", reviewCtrl.Upsert)
		u.GET("/reviews/me", reviewCtrl.Mine)
		u.DELETE("/reviews/:id", reviewCtrl.Delete)

		// ยื่นสมัครเปิดร้าน
		u.POST("/vendors", vendorCtrl.Apply)

		u.GET("/notifications", notifCtrl.Inbox)
		u.POST("/notifications/read-all", notifCtrl.MarkAllRead)
		u.PATCH("/notifications/:id/read", notifCtrl.MarkRead)
		u.POST("/notifications/tokens", notifCtrl.RegisterToken)
		u.DELETE("/notifications/tokens", notifCtrl.UnregisterToken)
		u.GET("/notifications/preferences", notifCtrl.Preferences)
		u.PATCH("/notifications/preferences", notifCtrl.UpdatePreferences)
	}

	// Live notifications
	r.GET("/ws/notifications", s.Authenticator.RequireWS(), s.Hub.HandleWebSocket)

	// Partner Restaurant (owner/admin)
	partner := r.Group("/partner", auth(entity.RoleOwner))
	{
		partner.GET("/restaurants", restCtrl.Mine)
		partner.PATCH("/restaurants/:id", restCtrl.Update)
		partner.GET("/restaurants/:id/dishes", dishCtrl.ListForOwner)
		partner.POST("/restaurants/:id/dishes", dishCtrl.Create)
		partner.GET("/restaurants/:id/orders", orderCtrl.RestaurantOrders)
		partner.PATCH("/dishes/:id", dishCtrl.Update)
		partner.DELETE("/dishes/:id", dishCtrl.Delete)
	}

	// Admin (admin only)
	admin := r.Group("/admin", adminOnly)
	{
		admin.POST("/countries", countryCtrl.Create)
		admin.PATCH("/countries/:code", countryCtrl.Update)
		admin.PATCH("/restaurants/:id/featured", restCtrl.SetFeatured)

		admin.GET("/promotions", promoCtrl.ListAll)
		admin.POST("/promotions", promoCtrl.Create)

		// อนุมัติ/ปฏิเสธใบสมัครเปิดร้าน
		admin.GET("/vendors", vendorCtrl.List) // ?status=pending
		admin.PATCH("/vendors/:id/approve", vendorCtrl.Approve)
		admin.PATCH("/vendors/:id/reject", vendorCtrl.Reject)

		admin.POST("/notifications", notifCtrl.Send)

		admin.GET("/images/stats", imageCtrl.Stats)
		admin.POST("/images/preload", imageCtrl.Preload)
		admin.POST("/images/cleanup", imageCtrl.Cleanup)
		admin.DELETE("/images", imageCtrl.Clear)
	}
}
