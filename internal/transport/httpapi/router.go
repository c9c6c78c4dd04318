// Package httpapi - HTTP/JSON API витрины и админки поверх журнала заказов.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/service/analytics"
	"github.com/psalsa30/unithrift/internal/service/engine"
)

// Ledger - операции журнала, которые обслуживает API.
type Ledger interface {
	Checkout(ctx context.Context, in domain.CheckoutInput) (domain.Order, error)
	SetStatus(ctx context.Context, orderID, status string) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
	List(ctx context.Context) []domain.Order
	Get(ctx context.Context, orderID string) (domain.Order, error)
	Filter(ctx context.Context, c engine.Criteria) []domain.Order
	Stats(ctx context.Context) analytics.DashboardStats
	RevenueByDate(ctx context.Context, days int) analytics.RevenueSeries
	OrdersByCategory(ctx context.Context) map[string]int
	RevenueByCampus(ctx context.Context) map[string]float64
	PaymentMethods(ctx context.Context) map[string]int
}

var _ Ledger = (*engine.Engine)(nil)

// RequestObserver принимает метрики HTTP-запросов.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, code int, duration time.Duration)
}

// Config - зависимости роутера.
type Config struct {
	Ledger      Ledger
	Logger      *log.Entry
	Metrics     RequestObserver
	CORSOrigins []string
	Clock       func() time.Time
}

type server struct {
	ledger Ledger
	logger *log.Entry
	now    func() time.Time
}

// NewRouter собирает gin.Engine со всеми маршрутами и middleware.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.WithField("component", "http-api")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	s := &server{ledger: cfg.Ledger, logger: cfg.Logger, now: cfg.Clock}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(accessLog(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(observeRequests(cfg.Metrics))
	}
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/products", s.listProducts)
		api.GET("/products/:productId", s.getProduct)

		api.GET("/orders", s.listOrders)
		api.GET("/orders/filter", s.filterOrders)
		api.GET("/orders/:orderId", s.getOrder)
		api.PATCH("/orders/:orderId/status", s.updateStatus)
		api.DELETE("/orders/:orderId", s.deleteOrder)

		api.GET("/cart/checkout", s.checkoutHint)
		api.POST("/cart/checkout", s.checkout)

		dashboard := api.Group("/dashboard")
		dashboard.GET("/stats", s.stats)
		dashboard.GET("/revenue-by-date", s.revenueByDate)
		dashboard.GET("/orders-by-category", s.ordersByCategory)
		dashboard.GET("/revenue-by-campus", s.revenueByCampus)
		dashboard.GET("/payment-methods", s.paymentMethods)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", headerRequestID)
	cfg.ExposeHeaders = []string{headerRequestID}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
