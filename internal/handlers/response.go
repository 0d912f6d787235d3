package handlers

import (
	"fmt"
	"log"
	"strconv"

	"storefront/internal/apperrors"
	"storefront/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError writes err as {"errorMessage", ...details}. Unexpected errors
// become a 500 that still carries the underlying message.
func respondError(c *fiber.Ctx, err error) error {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind == apperrors.KindInternal {
		log.Printf("Error handling %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"errorMessage": "Something went wrong",
			"error":        err.Error(),
		})
	}

	body := fiber.Map{"errorMessage": appErr.Message}
	if appErr.Code != "" {
		body["error"] = appErr.Code
	}
	for k, v := range appErr.Details {
		body[k] = v
	}
	return c.Status(apperrors.HTTPStatus(appErr.Kind)).JSON(body)
}

func invalidBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body for %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"errorMessage": "Invalid request body",
	})
}

// validationFailed reports struct tag failures per field.
func validationFailed(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"errorMessage": "Validation failed",
		"errors":       errorMessages,
	})
}

func parsePage(c *fiber.Ctx) (repositories.Page, error) {
	page := repositories.Page{Number: 1, Limit: repositories.DefaultPageLimit}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, apperrors.Validation("page must be a positive number")
		}
		page.Number = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, apperrors.Validation("limit must be between 1 and %d", repositories.MaxPageLimit)
		}
		page.Limit = n
	}
	if err := page.Validate(); err != nil {
		return page, apperrors.Validation("%s", err.Error())
	}
	return page, nil
}

func success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func successPage(c *fiber.Ctx, message string, data any, pagination repositories.Pagination) error {
	return c.JSON(fiber.Map{
		"message":    message,
		"data":       data,
		"pagination": pagination,
	})
}
