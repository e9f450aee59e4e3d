package validate

import (
	"fmt"
	"strconv"

	"concert_manager/model"
	"concert_manager/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func parseAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, fmt.Errorf("cannot parse request: %w", err)
	}
	if err := validate.Struct(&input); err != nil {
		return nil, err
	}
	return &input, nil
}

// IdParam parses a numeric route param into locals.
func IdParam(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, err := strconv.ParseUint(c.Params(key), 10, 64)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid id parameter", err)
		}
		c.Locals("inputId", uint(value))
		return c.Next()
	}
}

func Purchase() fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := parseAndValidate[model.PurchaseInput](c)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid purchase request", err)
		}
		c.Locals("input", *input)
		return c.Next()
	}
}

func Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := parseAndValidate[model.VerifyInput](c)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid verify request", err)
		}
		c.Locals("input", *input)
		return c.Next()
	}
}

func Refund() fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := parseAndValidate[model.RefundInput](c)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid refund request", err)
		}
		c.Locals("input", *input)
		return c.Next()
	}
}

func Scan() fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := parseAndValidate[model.ScanInput](c)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid scan request", err)
		}
		c.Locals("input", *input)
		return c.Next()
	}
}

func CreateSubaccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := parseAndValidate[model.CreateSubaccountInput](c)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid subaccount request", err)
		}
		c.Locals("input", *input)
		return c.Next()
	}
}
