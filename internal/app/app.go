// Package app assembles the HTTP application from its services.
package app

import (
	"errors"
	"time"

	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps are the collaborators the application is built from. Publisher and
// Counter may be nil.
type Deps struct {
	Store     repositories.Store
	Publisher events.Publisher
	Counter   cache.CartCounter
	JWTSecret string
	TokenTTL  time.Duration
	// EventMode is reported by /health, e.g. "rabbitmq" or "inline".
	EventMode string
	// Quiet disables the request logger.
	Quiet bool
}

// Services is the service layer behind an App.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Carts    *services.CartService
	Orders   *services.OrderService
}

func NewServices(d Deps) *Services {
	return &Services{
		Auth:     services.NewAuthService(d.Store.Users(), d.JWTSecret, d.TokenTTL),
		Products: services.NewProductService(d.Store),
		Carts:    services.NewCartService(d.Store, d.Counter),
		Orders:   services.NewOrderService(d.Store, d.Publisher, d.Counter),
	}
}

// New builds the Fiber app with every route mounted under /api/v1.
func New(d Deps, svc *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if !d.Quiet {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": d.EventMode,
		})
	})

	apiV1 := app.Group("/api/v1")
	authRequired := middleware.AuthRequired(svc.Auth)
	adminOnly := middleware.RestrictTo(models.RoleAdmin)

	productHandler := handlers.NewProductHandler(svc.Products)
	handlers.NewAuthHandler(svc.Auth).RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1, middleware.OptionalAuth(svc.Auth))

	protected := apiV1.Group("", authRequired)
	productHandler.RegisterAdminRoutes(protected, adminOnly)
	handlers.NewCartHandler(svc.Carts).RegisterRoutes(protected)
	handlers.NewOrderHandler(svc.Orders).RegisterRoutes(protected, adminOnly)

	return app
}

// errorHandler renders errors that escape handlers, such as unknown routes,
// in the same shape as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Something went wrong"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"errorMessage": message})
}
