// Package validation binds and validates request payloads before they reach
// a handler.
package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// DecorateWithBodyEx parses the JSON body into T, validates it and passes it
// to next. Parse and validation failures are reported as 400.
func DecorateWithBodyEx[T any](v *validator.Validate, next func(*fiber.Ctx, *T) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := v.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return next(c, req)
	}
}

// DecorateWithQueryEx is DecorateWithBodyEx for query parameters.
func DecorateWithQueryEx[T any](v *validator.Validate, next func(*fiber.Ctx, *T) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.QueryParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := v.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return next(c, req)
	}
}
