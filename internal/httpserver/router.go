package httpserver

import (
	"context"
	"net/http"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/metrics"
	"storefront-sync/internal/service/checkout"
	"storefront-sync/internal/service/identity"
	"storefront-sync/internal/service/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type sessionService interface {
	Signup(ctx context.Context, in identity.SignupInput) (*domain.UserRef, error)
	Login(ctx context.Context, email, password string) (*session.Handle, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*domain.UserRef, error)
	Resolve(ctx context.Context, token string) (*session.Handle, error)
	BeginCheckout(ctx context.Context, h *session.Handle) (*checkout.Orchestrator, error)
}

type catalogService interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Product(ctx context.Context, id int) (*domain.Product, error)
}

type orderService interface {
	List(ctx context.Context, userID string) ([]domain.Order, error)
	Get(ctx context.Context, userID, orderID string) (*domain.Order, error)
}

// ReadyCheck is one dependency probed by /readyz.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps bundles the services the router exposes.
type Deps struct {
	Sessions        sessionService
	Catalog         catalogService
	Orders          orderService
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Ready           []ReadyCheck
	CORSOrigins     []string
	LoginRatePerMin int
}

// buildRouter wires routes for the API.
func buildRouter(logger logrus.FieldLogger, deps Deps) (*gin.Engine, error) {
	router := gin.New()
	router.Use(loggingMiddleware(logger), gin.Recovery(), metricsMiddleware(deps.Metrics))
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := &authHandler{sessions: deps.Sessions}
	router.POST("/auth/signup", auth.signup)
	router.POST("/auth/login", rateLimit(deps.LoginRatePerMin), auth.login)
	router.POST("/auth/logout", auth.logout)
	router.GET("/me", auth.me)

	products := &productHandler{catalog: deps.Catalog}
	router.GET("/products", products.list)
	router.GET("/products/categories", products.categories)
	router.GET("/products/:id", products.get)

	authed := router.Group("/", sessionMiddleware(deps.Sessions))

	carts := &cartHandler{catalog: deps.Catalog}
	authed.GET("/cart", carts.get)
	authed.POST("/cart/lines", carts.addLine)
	authed.PATCH("/cart/lines/:productId", carts.changeQuantity)
	authed.DELETE("/cart/lines/:productId", carts.removeLine)
	authed.POST("/cart/reload", carts.reload)

	checkouts := &checkoutHandler{sessions: deps.Sessions}
	authed.GET("/checkout", checkouts.get)
	authed.POST("/checkout", checkouts.begin)
	authed.GET("/checkout/address", checkouts.getAddress)
	authed.PUT("/checkout/address", checkouts.putAddress)
	authed.POST("/checkout/confirm", checkouts.confirm)

	orders := &orderHandler{orders: deps.Orders}
	authed.GET("/orders", orders.list)
	authed.GET("/orders/:orderId", orders.get)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: errorDetail{Kind: string(domain.KindRecordNotFound), Message: "route not found"}})
	})
	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHdr},
		ExposeHeaders: []string{requestIDHdr},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
