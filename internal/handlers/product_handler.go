package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler serves the catalog. Reads are public; writes go through
// RegisterAdminRoutes.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the public reads. identify should be OptionalAuth so
// admins can see products that are not ACTIVE.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, identify fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", identify, h.HandleListProducts)
	productRoutes.Get("/:id", identify, h.HandleGetProduct)
}

// RegisterAdminRoutes expects router to be behind AuthRequired.
func (h *ProductHandler) RegisterAdminRoutes(router fiber.Router, adminOnly fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Post("/", adminOnly, h.HandleCreateProduct)
	productRoutes.Patch("/:id", adminOnly, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", adminOnly, h.HandleDeleteProduct)
}

// HandleListProducts supports page, limit, status, type and search. status
// defaults to ACTIVE; admins may pass ALL or any other status.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	status := models.ProductStatus(c.Query("status", string(models.ProductStatusActive)))
	if status == "ALL" {
		status = ""
	}
	filter := repositories.ProductFilter{
		Status:      status,
		ProductType: models.ProductType(c.Query("type")),
		Search:      c.Query("search"),
	}
	products, pagination, err := h.service.ListVisibleProducts(c.UserContext(), middleware.Actor(c), filter, page)
	if err != nil {
		return respondError(c, err)
	}
	return successPage(c, "Products retrieved successfully", products, pagination)
}

func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetVisibleProduct(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.CreateProductInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Product created successfully", product)
}

func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var patch services.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Product updated successfully", product)
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Product deleted successfully", nil)
}
