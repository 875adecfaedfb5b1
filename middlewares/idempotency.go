package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"invoice-backend/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const idempotencyHeader = "Idempotency-Key"

// Idempotency processes Idempotency-Key for mutating HTTP methods.
// The first completed response for a key is stored and replayed for repeats of
// the same request; reusing a key for a different request is a conflict.
// Responses with a 5xx status are not stored so the client can retry.
func Idempotency(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body())
		ctx := c.UserContext()

		// ---- Phase 1: find the key or claim it with a "pending" record
		existing, claimed, err := claimKey(db.WithContext(ctx), models.IdempotencyKey{
			Key:         key,
			RequestHash: reqHash,
			Method:      method,
			Path:        path,
		})
		if err != nil {
			log.Error("idempotency claim failed", zap.String("key", key), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
		}

		if !claimed {
			if existing.RequestHash != reqHash {
				return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
			}
			if existing.ResponseStatus == 0 {
				return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is still in progress")
			}
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		// ---- Run the handler once and render its error so the final status is known
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()

		// ---- Phase 2: store the response, or release the key after a server error
		if status >= fiber.StatusInternalServerError {
			if err := db.WithContext(ctx).Where("key = ?", key).Delete(&models.IdempotencyKey{}).Error; err != nil {
				log.Warn("idempotency key release failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}

		resp := c.Response().Body()
		var body datatypes.JSON
		if json.Valid(resp) {
			body = make(datatypes.JSON, len(resp))
			copy(body, resp)
		}
		now := time.Now().UTC()
		if err := db.WithContext(ctx).Model(&models.IdempotencyKey{}).
			Where("key = ?", key).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   body,
				"completed_at":    &now,
			}).Error; err != nil {
			// best-effort: don't break the successful response
			log.Warn("idempotency response store failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}

// claimKey returns the stored record for rec.Key, or inserts rec as pending and
// reports claimed=true. A lost insert race falls back to reading the winner.
func claimKey(db *gorm.DB, rec models.IdempotencyKey) (models.IdempotencyKey, bool, error) {
	var existing models.IdempotencyKey
	err := db.Where("key = ?", rec.Key).First(&existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return existing, false, err
	}

	if err := db.Create(&rec).Error; err != nil {
		if e2 := db.Where("key = ?", rec.Key).First(&existing).Error; e2 != nil {
			return existing, false, err
		}
		return existing, false, nil
	}
	return rec, true, nil
}

// requestHash is sha256 of method|path|body.
func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
