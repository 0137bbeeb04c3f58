package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"nftmarket/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Locals keys set by middleware.AuthRequired.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
)

// currentUserID returns the authenticated caller's id, or "" when the route
// is not behind AuthRequired.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// respondError maps a service error onto its HTTP status. Unexpected errors
// are logged and reported with a generic message.
func respondError(c *fiber.Ctx, logs *zap.SugaredLogger, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusBadRequest
	}

	var serr *services.Error
	if status == fiber.StatusInternalServerError || !errors.As(err, &serr) {
		logs.Errorw("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"message": serr.Message,
	})
}

// bindJSON parses the request body into req and checks its validate tags.
// On failure the 400 response has already been written and ok is false.
func bindJSON(c *fiber.Ctx, validate *validator.Validate, req interface{}) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, err
		}
		fields := make([]services.FieldError, 0, len(validationErrors))
		for _, e := range validationErrors {
			fields = append(fields, services.FieldError{
				Field:   e.Field(),
				Message: fmt.Sprintf("failed on the '%s' tag", e.Tag()),
			})
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fields,
		})
	}
	return true, nil
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// paging reads the page and limit query parameters. Missing or malformed
// values become 0 and are defaulted by the services.
func paging(c *fiber.Ctx) (page, limit int) {
	return c.QueryInt("page", 0), c.QueryInt("limit", 0)
}

// queryFloat reads an optional numeric query parameter.
func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &services.ValidationError{Fields: []services.FieldError{{Field: key, Message: "must be a number"}}}
	}
	return &v, nil
}

// queryBool reads an optional boolean query parameter.
func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &services.ValidationError{Fields: []services.FieldError{{Field: key, Message: "must be a boolean"}}}
	}
	return &v, nil
}
