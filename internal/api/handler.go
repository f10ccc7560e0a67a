package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/media"
	"marketplace-service/internal/service"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// Handler contains HTTP handlers
type Handler struct {
	accounts         *service.AccountService
	catalog          *service.CatalogService
	negotiation      *service.NegotiationService
	sales            *service.SalesService
	media            *media.Client
	auth             *auth.Service
	maxProductImages int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	accounts *service.AccountService,
	catalog *service.CatalogService,
	negotiation *service.NegotiationService,
	sales *service.SalesService,
	mediaClient *media.Client,
	authService *auth.Service,
	maxProductImages int,
) *Handler {
	return &Handler{
		accounts:         accounts,
		catalog:          catalog,
		negotiation:      negotiation,
		sales:            sales,
		media:            mediaClient,
		auth:             authService,
		maxProductImages: maxProductImages,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/register/buyer", h.registerBuyer)
		v1.POST("/register/seller", h.registerSeller)
		v1.POST("/login", h.login)
		v1.POST("/password-reset/request", h.requestPasswordReset)
		v1.POST("/password-reset/confirm", h.confirmPasswordReset)

		v1.GET("/products/catalog", h.browseCatalog)
		v1.GET("/products/:id/details", h.productDetails)

		authed := v1.Group("")
		authed.Use(h.requireAuth())
		{
			authed.GET("/products/:id", h.getProduct)
			authed.POST("/products", h.createProduct)
			authed.PUT("/products/:id", h.updateProduct)
			authed.DELETE("/products/:id", h.deleteProduct)

			authed.POST("/products/:id/offers", h.submitOffer)
			authed.PUT("/offers/:id/accept", h.acceptOffer)
			authed.PUT("/offers/:id/reject", h.rejectOffer)

			authed.GET("/seller/products", h.listSellerProducts)
			authed.GET("/seller/offers", h.listSellerOffers)
			authed.GET("/seller/sales", h.listSellerSales)
			authed.GET("/seller/profile", h.getProfile)
			authed.PUT("/seller/profile", h.updateProfile)

			authed.GET("/buyer/offers", h.listBuyerOffers)

			authed.POST("/upload/image", h.uploadImage)
			authed.POST("/upload/product-images", h.uploadProductImages)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// requireAuth verifies the bearer token and stores the caller's user id on
// the request context. Role checks stay in the services, which re-resolve
// the user record.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or malformed token"})
			return
		}

		userID, err := h.auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// pathID parses the :id path parameter. On failure it writes the 400 itself
// and reports ok=false.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// writeError maps a domain error to its HTTP response. Extra fields (like
// suggested_min on a low offer) pass through to the body.
func writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		util.GetLogger().Error("Unclassified handler error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if svcErr.Kind == service.KindStorage {
		util.GetLogger().Error("Storage error", zap.Error(svcErr))
	}

	body := gin.H{}
	for k, v := range svcErr.Fields {
		body[k] = v
	}
	if svcErr.Message != "" {
		body["error"] = svcErr.Message
	}
	c.JSON(svcErr.Status, body)
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
