package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"furnishop-backend/config"
	"furnishop-backend/internal/middleware"
	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

// Services bundles the service layer the router is built on
type Services struct {
	Auth           *services.AuthService
	Users          *services.UserService
	Products       *services.ProductService
	Transactions   *services.TransactionService
	CustomOrders   *services.CustomOrderService
	RepairRequests *services.RepairRequestService
	PaymentMethods *services.PaymentMethodService
	Assets         *services.AssetService
	Events         *services.WebSocketService
}

// NewServices wires every service onto one database, object store and cache
func NewServices(cfg *config.Config, db *sqlx.DB, store services.ObjectStore, cache services.CatalogCache, logger logrus.FieldLogger) *Services {
	auth := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	events := services.NewWebSocketService(auth, cfg.AllowedOrigins, logger)
	assets := services.NewAssetService(store, logger.WithField("component", "assets"))

	return &Services{
		Auth:           auth,
		Users:          services.NewUserService(db, logger.WithField("component", "users")),
		Products:       services.NewProductService(db, cache, logger.WithField("component", "products")),
		Transactions:   services.NewTransactionService(db, cache, events, logger.WithField("component", "transactions")),
		CustomOrders:   services.NewCustomOrderService(db, assets, events, logger.WithField("component", "custom_orders")),
		RepairRequests: services.NewRepairRequestService(db, assets, logger.WithField("component", "repair_requests")),
		PaymentMethods: services.NewPaymentMethodService(db, store, logger.WithField("component", "payment_methods")),
		Assets:         assets,
		Events:         events,
	}
}

// NewRouter builds the HTTP surface. Resources live under /api; /health and
// the order feed sit at the root.
func NewRouter(cfg *config.Config, db *sqlx.DB, svc *Services, logger logrus.FieldLogger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins, cfg.AllowAllOrigins))
	router.Use(middleware.SecurityMiddleware(&middleware.SecurityConfig{
		MaxRequestSize:    cfg.MaxRequestSize,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		RequireHTTPS:      cfg.IsProduction(),
	}, logger))

	auth := middleware.NewAuthMiddleware(svc.Auth)
	admin := auth.RequireRole(models.UserRoleAdmin)
	uploads := middleware.FileUploadSecurityMiddleware(32 << 20)
	authLimit := middleware.AuthRateLimitMiddleware(20, time.Minute, logger)

	users := NewUserHandlers(svc.Users, svc.Auth, logger)
	products := NewProductHandlers(svc.Products, svc.Assets, logger)
	transactions := NewTransactionHandlers(svc.Transactions, svc.Assets, logger)
	customOrders := NewCustomOrderHandlers(svc.CustomOrders, logger)
	paymentMethods := NewPaymentMethodHandlers(svc.PaymentMethods, svc.Assets, logger)
	repairs := NewRepairRequestHandlers(svc.RepairRequests, svc.Assets, logger)
	assets := NewAssetHandlers(svc.Assets, cfg.SignedURLTTL, logger)

	router.GET("/health", healthCheck(db))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", healthCheck(db))

		userRoutes := apiGroup.Group("/users")
		{
			userRoutes.POST("/register", authLimit, users.Register)
			userRoutes.POST("/login", authLimit, users.Login)
			userRoutes.GET("/me", auth.AuthRequired(), users.Me)
		}

		productRoutes := apiGroup.Group("/products")
		{
			productRoutes.GET("", products.GetProducts)
			productRoutes.GET("/:id", products.GetProduct)
			productRoutes.POST("", auth.AuthRequired(), admin, products.CreateProduct)
			productRoutes.POST("/upload-image", auth.AuthRequired(), admin, uploads, products.UploadImage)
			productRoutes.POST("/upload-model", auth.AuthRequired(), admin, uploads, products.UploadModel)
			productRoutes.PUT("/:id", auth.AuthRequired(), admin, products.UpdateProduct)
			productRoutes.DELETE("/:id", auth.AuthRequired(), admin, products.DeleteProduct)
		}

		transactionRoutes := apiGroup.Group("/transactions", auth.AuthRequired())
		{
			transactionRoutes.POST("", transactions.CreateTransaction)
			transactionRoutes.POST("/upload-screenshot", uploads, transactions.UploadScreenshot)
			transactionRoutes.GET("/my-orders", transactions.GetMyTransactions)
			transactionRoutes.GET("/:id", transactions.GetTransaction)
			transactionRoutes.GET("", admin, transactions.GetTransactions)
			transactionRoutes.PUT("/:id", admin, transactions.UpdateTransactionStatus)
			transactionRoutes.DELETE("/:id", admin, transactions.DeleteTransaction)
		}

		customOrderRoutes := apiGroup.Group("/custom-orders", auth.AuthRequired())
		{
			customOrderRoutes.POST("", uploads, customOrders.CreateCustomOrder)
			customOrderRoutes.GET("", customOrders.GetCustomOrders)
			customOrderRoutes.GET("/:id", customOrders.GetCustomOrder)
			customOrderRoutes.PUT("/:id", admin, customOrders.UpdateCustomOrder)
			customOrderRoutes.DELETE("/:id", admin, customOrders.DeleteCustomOrder)
		}

		paymentRoutes := apiGroup.Group("/payment-methods")
		{
			paymentRoutes.GET("", paymentMethods.GetActivePaymentMethods)
			paymentRoutes.GET("/all", auth.AuthRequired(), admin, paymentMethods.GetAllPaymentMethods)
			paymentRoutes.GET("/:id", paymentMethods.GetPaymentMethod)
			paymentRoutes.POST("/upload-qr", auth.AuthRequired(), admin, uploads, paymentMethods.UploadQR)
			paymentRoutes.POST("", auth.AuthRequired(), admin, paymentMethods.CreatePaymentMethod)
			paymentRoutes.PUT("/:id", auth.AuthRequired(), admin, paymentMethods.UpdatePaymentMethod)
			paymentRoutes.DELETE("/:id", auth.AuthRequired(), admin, paymentMethods.DeletePaymentMethod)
		}

		repairRoutes := apiGroup.Group("/repair-requests", auth.AuthRequired())
		{
			repairRoutes.POST("/upload-media", uploads, repairs.UploadMedia)
			repairRoutes.POST("", repairs.CreateRepairRequest)
			repairRoutes.GET("", admin, repairs.GetRepairRequests)
			repairRoutes.GET("/my-requests", repairs.GetMyRepairRequests)
			repairRoutes.GET("/order/:orderId", repairs.GetOrderRepairRequests)
			repairRoutes.PUT("/:id", admin, repairs.UpdateRepairRequest)
			repairRoutes.DELETE("/:id", admin, repairs.DeleteRepairRequest)
		}

		assetRoutes := apiGroup.Group("/assets", auth.AuthRequired(), admin)
		{
			assetRoutes.POST("/upload-model", uploads, assets.UploadModel)
			assetRoutes.POST("/upload-texture", uploads, assets.UploadTexture)
			assetRoutes.POST("/upload-multiple-models", uploads, assets.UploadMultipleModels)
			assetRoutes.DELETE("/delete", assets.DeleteAsset)
			assetRoutes.GET("/signed-url", assets.SignedURL)
		}
	}

	// Token comes from the Authorization header or ?token=
	router.GET("/ws/orders", auth.OptionalAuth(), svc.Events.HandleWebSocket)

	return router
}

func healthCheck(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"status":  "degraded",
				"message": "Database unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "ok",
			"message": "FurniShop API is running",
			"version": "1.0.0",
		})
	}
}
