package handlers

import (
	"log"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes. router must be behind
// AuthRequired; adminOnly guards the back-office endpoints. Fixed paths are
// registered before /:id.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, adminOnly fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", adminOnly, h.HandleListOrders)
	orderRoutes.Get("/my-orders", h.HandleMyOrders)
	orderRoutes.Get("/stats", adminOnly, h.HandleStats)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Patch("/:id/status", adminOnly, h.HandleUpdateOrderStatus)
	orderRoutes.Patch("/:id/payment", adminOnly, h.HandleUpdatePaymentStatus)
	orderRoutes.Patch("/:id/tracking", adminOnly, h.HandleUpdateTracking)
	orderRoutes.Delete("/:id", adminOnly, h.HandleDeleteOrder)
}

// HandleCreateOrder places an order from the caller's cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var in services.PlaceOrderInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}

	actor := middleware.Actor(c)
	order, err := h.service.PlaceOrder(c.UserContext(), actor.UserID, in)
	if err != nil {
		log.Printf("Error placing order for user %s: %v", actor.UserID, err)
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Order placed successfully", order)
}

// HandleListOrders lists all orders with filters for admins.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	filter, err := parseOrderFilter(c)
	if err != nil {
		return respondError(c, err)
	}
	orders, pagination, err := h.service.List(c.UserContext(), filter, page)
	if err != nil {
		return respondError(c, err)
	}
	return successPage(c, "Orders retrieved successfully", orders, pagination)
}

func (h *OrderHandler) HandleMyOrders(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	orders, pagination, err := h.service.ListMine(c.UserContext(), middleware.Actor(c).UserID, models.OrderStatus(c.Query("status")), page)
	if err != nil {
		return respondError(c, err)
	}
	return successPage(c, "Orders retrieved successfully", orders, pagination)
}

func (h *OrderHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), c.Query("period", "month"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Order statistics retrieved successfully", stats)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.Cancel(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Order cancelled successfully", order)
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var body struct {
		OrderStatus models.OrderStatus `json:"orderStatus" validate:"required"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(body); err != nil {
		return validationFailed(c, err)
	}
	return h.patch(c, services.OrderPatch{OrderStatus: &body.OrderStatus}, "Order status updated successfully")
}

func (h *OrderHandler) HandleUpdatePaymentStatus(c *fiber.Ctx) error {
	var body struct {
		PaymentStatus models.PaymentStatus `json:"paymentStatus" validate:"required"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(body); err != nil {
		return validationFailed(c, err)
	}
	return h.patch(c, services.OrderPatch{PaymentStatus: &body.PaymentStatus}, "Payment status updated successfully")
}

func (h *OrderHandler) HandleUpdateTracking(c *fiber.Ctx) error {
	var body struct {
		TrackingNumber string `json:"trackingNumber" validate:"required,max=100"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(body); err != nil {
		return validationFailed(c, err)
	}
	return h.patch(c, services.OrderPatch{TrackingNumber: &body.TrackingNumber}, "Tracking number updated successfully")
}

func (h *OrderHandler) patch(c *fiber.Ctx, patch services.OrderPatch, message string) error {
	order, err := h.service.UpdateOrder(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, message, order)
}

func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Order deleted successfully", nil)
}

// parseOrderFilter reads the admin list query. endDate covers the whole day.
func parseOrderFilter(c *fiber.Ctx) (repositories.OrderFilter, error) {
	filter := repositories.OrderFilter{
		OrderStatus:   models.OrderStatus(c.Query("status")),
		PaymentStatus: models.PaymentStatus(c.Query("paymentStatus")),
		PaymentMethod: models.PaymentMethod(c.Query("paymentMethod")),
		Search:        c.Query("search"),
		SortField:     c.Query("sort", "createdAt"),
		SortDesc:      c.Query("order", "desc") != "asc",
	}
	if v := c.Query("startDate"); v != "" {
		start, err := time.Parse(dateLayout, v)
		if err != nil {
			return filter, apperrors.Validation("startDate must use the YYYY-MM-DD format")
		}
		filter.StartDate = &start
	}
	if v := c.Query("endDate"); v != "" {
		end, err := time.Parse(dateLayout, v)
		if err != nil {
			return filter, apperrors.Validation("endDate must use the YYYY-MM-DD format")
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &end
	}
	return filter, nil
}
