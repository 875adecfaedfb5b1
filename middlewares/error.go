package middlewares

import (
	"errors"

	"invoice-backend/lineitems"
	"invoice-backend/repository"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		// 2) Validation errors (422 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make(map[string]string, len(ve))
			for _, fe := range ve {
				out[fieldPath(fe)] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  out,
			})
		}

		// 3) Missing invoice (404), unstorable total (422)
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "invoice not found"})
		}
		if errors.Is(err, repository.ErrInvalidTotal) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": repository.ErrInvalidTotal.Error()})
		}

		// 4) Stored data and storage faults (500, logged with detail)
		var corrupt *lineitems.CorruptDataError
		var storage *repository.StorageError
		switch {
		case errors.As(err, &corrupt):
			log.Error("corrupt invoice data", zap.Error(err), zap.String("path", c.Path()))
		case errors.As(err, &storage):
			log.Error("storage failure", zap.String("op", storage.Op), zap.Error(err), zap.String("path", c.Path()))
		default:
			log.Error("internal error", zap.Error(err), zap.String("path", c.Path()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}
}

// fieldPath drops the top-level struct name from the validator namespace,
// e.g. "CreateInvoiceDTO.items[0].price" -> "items[0].price".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return fe.Field()
}
