package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes expects router to be behind AuthRequired.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddItem)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Get("/count", h.HandleCount)
	cartRoutes.Post("/sync", h.HandleSync)
	cartRoutes.Put("/:itemId", h.HandleUpdateItem)
	cartRoutes.Delete("/:itemId", h.HandleRemoveItem)
}

// AddItemRequest adds one unit when quantity is omitted.
type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	view, err := h.service.View(c.UserContext(), middleware.Actor(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Cart retrieved successfully", view)
}

func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	userID := middleware.Actor(c).UserID
	if _, err := h.service.AddItem(c.UserContext(), userID, req.ProductID, quantity); err != nil {
		return respondError(c, err)
	}
	view, err := h.service.View(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Item added to cart", view)
}

func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	userID := middleware.Actor(c).UserID
	if _, err := h.service.UpdateItem(c.UserContext(), userID, c.Params("itemId"), req.Quantity); err != nil {
		return respondError(c, err)
	}
	view, err := h.service.View(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Cart item updated", view)
}

func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	userID := middleware.Actor(c).UserID
	if err := h.service.RemoveItem(c.UserContext(), userID, c.Params("itemId")); err != nil {
		return respondError(c, err)
	}
	view, err := h.service.View(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Item removed from cart", view)
}

func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cleared, err := h.service.Clear(c.UserContext(), middleware.Actor(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	message := "Cart cleared"
	if !cleared {
		message = "Cart is already empty"
	}
	return success(c, fiber.StatusOK, message, nil)
}

func (h *CartHandler) HandleCount(c *fiber.Ctx) error {
	n, err := h.service.Count(c.UserContext(), middleware.Actor(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Cart count retrieved successfully", fiber.Map{"count": n})
}

// HandleSync reconciles the cart with the catalog and reports every change.
func (h *CartHandler) HandleSync(c *fiber.Ctx) error {
	result, err := h.service.Reconcile(c.UserContext(), middleware.Actor(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	message := "Cart is up to date"
	if !result.Changes.Empty() {
		message = "Cart synchronized with latest product data"
	}
	return success(c, fiber.StatusOK, message, result)
}
