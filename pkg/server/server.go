package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/service"
)

type Server struct {
	config    *config.Config
	logger    *zap.Logger
	router    *gin.Engine
	users     *service.UserService
	products  *service.ProductService
	orders    *service.OrderService
	tokens    *auth.TokenManager
	blacklist service.TokenBlacklist
}

func New(cfg *config.Config, logger *zap.Logger, users *service.UserService, products *service.ProductService, orders *service.OrderService, tokens *auth.TokenManager, blacklist service.TokenBlacklist) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Server{
		config:    cfg,
		logger:    logger,
		router:    router,
		users:     users,
		products:  products,
		orders:    orders,
		tokens:    tokens,
		blacklist: blacklist,
	}
}

func (s *Server) SetupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", s.register)
			users.POST("/login", s.login)

			authed := users.Group("", s.authRequired())
			{
				authed.POST("/logout", s.logout)
				authed.GET("/me", s.currentUserProfile)
				authed.PUT("/me", s.updateProfile)
				authed.GET("", s.adminRequired(), s.listUsers)
				authed.GET("/:id", s.adminRequired(), s.getUser)
				authed.DELETE("/:id", s.adminRequired(), s.deleteUser)
			}
		}

		products := v1.Group("/products")
		{
			products.GET("", s.listProducts)
			products.GET("/:id", s.getProduct)

			admin := products.Group("", s.authRequired(), s.adminRequired())
			{
				admin.POST("", s.createProduct)
				admin.PUT("/:id", s.updateProduct)
				admin.DELETE("/:id", s.deleteProduct)
			}
		}

		orders := v1.Group("/orders", s.authRequired())
		{
			orders.POST("", s.createOrder)
			orders.GET("/my-orders", s.myOrders)
			orders.GET("/user-statistics", s.userStatistics)
			orders.GET("/:id", s.getOrder)
			orders.DELETE("/:id", s.deleteOrder)

			admin := orders.Group("", s.adminRequired())
			{
				admin.GET("", s.listOrders)
				admin.GET("/statistics", s.platformStatistics)
				admin.GET("/health/stock-check", s.stockCheck)
				admin.PUT("/:id/status", s.updateOrderStatus)
			}
		}
	}

	// Swagger
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("API server starting", zap.String("address", addr))
	return s.router.Run(addr)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
