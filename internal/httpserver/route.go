package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

type Deps struct {
	Storefront *StorefrontHTTP
	Auth       *AuthHTTP
	Catalog    *CatalogHTTP
	Cart       *CartHTTP
	Account    *AccountHTTP

	Sessions  *session.Manager
	CSRF      csrf.Config
	UploadDir string
	BodyLimit string
	Ready     func() error
}

// New builds the echo instance with the full middleware chain and routes.
func New(logger *slog.Logger, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	limit := d.BodyLimit
	if limit == "" {
		limit = "10M"
	}

	e.Use(echomw.Recover())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.BodyLimit(limit))
	e.Use(csrf.Middleware(d.CSRF))
	e.Use(d.Sessions.Middleware())

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", metrics.Handler())

	if d.UploadDir != "" {
		e.Static("/static/uploads", d.UploadDir)
	}

	e.GET("/", d.Storefront.Home)

	e.POST("/signup/code", d.Auth.SendSignupCode)
	e.POST("/signup/verify", d.Auth.VerifySignup)
	e.POST("/login", d.Auth.Login)
	e.POST("/logout", d.Auth.Logout)
	e.GET("/me", d.Auth.Me, auth.RequireLogin)

	products := e.Group("/products")
	products.GET("", d.Catalog.ListProducts)
	products.GET("/search", d.Catalog.Search)
	products.GET("/:id", d.Catalog.GetProduct)

	cart := e.Group("/cart")
	cart.GET("", d.Cart.View)
	cart.POST("", d.Cart.Update)
	cart.POST("/checkout", d.Cart.Checkout, auth.RequireLogin)
	cart.GET("/checkout/qr", d.Cart.CheckoutQR, auth.RequireLogin)

	addresses := e.Group("/addresses", auth.RequireLogin)
	addresses.GET("", d.Account.ListAddresses)
	addresses.POST("", d.Account.AddAddress)
	addresses.DELETE("/:id", d.Account.DeleteAddress)
	e.GET("/orders", d.Account.ListOrders, auth.RequireLogin)

	admin := e.Group("/admin", auth.RequireAdmin)
	admin.POST("/products", d.Catalog.AddProduct)
	admin.DELETE("/products/:name", d.Catalog.DeleteProduct)
}
