package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/mortgage-service/pkg/util"
)

const (
	idempotencyHeader = "X-Request-Id"
	idempotencyPrefix = "http:idempotency:"

	// Held while the first request with a given key is still being handled.
	provisionalLockTTL = 60 * time.Second
)

type idempotencyEntry struct {
	InProgress bool   `json:"in_progress"`
	Code       int    `json:"code"`
	Body       []byte `json:"body"`
	BodySHA256 string `json:"body_sha256"`
}

// IdempotencyMiddleware deduplicates mutating requests that carry an
// X-Request-Id header. The first request takes a provisional lock in redis,
// handles normally and stores its response; retries with the same key and
// body replay the stored response instead of re-executing the handler.
// Requests without the header pass through untouched.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		requestID := strings.TrimSpace(c.Get(idempotencyHeader))
		if requestID == "" {
			return c.Next()
		}

		sum := sha256.Sum256(c.Body())
		bodyHash := hex.EncodeToString(sum[:])
		key := fmt.Sprintf("%s%s:%s:%s", idempotencyPrefix, c.Method(), c.Path(), requestID)

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		provisional, err := json.Marshal(idempotencyEntry{InProgress: true, BodySHA256: bodyHash})
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		acquired, err := rdb.SetNX(ctx, key, provisional, provisionalLockTTL).Result()
		if err != nil {
			logger.Warn("idempotency store unavailable, proceeding without dedupe",
				zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		if !acquired {
			raw, err := rdb.Get(ctx, key).Bytes()
			if err != nil {
				logger.Warn("failed to load idempotency entry",
					zap.String("key", key), zap.Error(err))
				return apperrors.NewConflict("request with this X-Request-Id is already in progress", nil)
			}
			var entry idempotencyEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return apperrors.NewInternalError(err)
			}
			if entry.BodySHA256 != "" && entry.BodySHA256 != bodyHash {
				return apperrors.NewConflict("X-Request-Id reused with a different request body", nil)
			}
			if !entry.InProgress && entry.Code != 0 {
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(entry.Code).Send(entry.Body)
			}
			return apperrors.NewConflict("request with this X-Request-Id is already in progress", nil)
		}

		if err := c.Next(); err != nil {
			// Release the lock so the client can retry a failed request.
			_ = rdb.Del(context.Background(), key).Err()
			return err
		}

		final, err := json.Marshal(idempotencyEntry{
			Code:       c.Response().StatusCode(),
			Body:       append([]byte(nil), c.Response().Body()...),
			BodySHA256: bodyHash,
		})
		if err == nil {
			if err := rdb.Set(context.Background(), key, final, ttl).Err(); err != nil {
				logger.Warn("failed to store idempotency entry",
					zap.String("key", key), zap.Error(err))
			}
		}
		return nil
	}
}
