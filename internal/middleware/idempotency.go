package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader   = "Idempotency-Key"
	idempotencyReplayed    = "Idempotent-Replayed"
	idempotencyPrefix      = "idempotency:v2:"
	idempotencyOpTimeout   = 2 * time.Second
	inProgressMarker       = "__in_progress__"
	maxIdempotencyKeyLen   = 255
	replayableStatusCutoff = fiber.StatusInternalServerError
)

// replayHeaders are the response headers worth restoring on a replay.
var replayHeaders = []string{fiber.HeaderContentType, fiber.HeaderLocation}

type storedResponse struct {
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
}

type idempotencyStore struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Idempotency replays the stored response of an unsafe request that carries
// an Idempotency-Key header already seen within ttl. Reusing a key with a
// different body is rejected. Requests without the header pass through
// untouched and a nil cache disables the middleware. Server errors are not
// stored so the client may retry with the same key.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := &idempotencyStore{cache: cache, ttl: ttl, logger: logger}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key header too long")
		}

		cacheKey := idempotencyPrefix + c.Path() + ":" + key
		fingerprint := bodyFingerprint(c.Body())

		stored, found, err := store.lookup(c.UserContext(), cacheKey)
		if err != nil {
			store.logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if found {
			return replay(c, stored, fingerprint)
		}

		reserved, err := store.reserve(c.UserContext(), cacheKey)
		if err != nil {
			store.logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}

		status := c.Response().StatusCode()
		if status >= replayableStatusCutoff {
			store.release(cacheKey)
			return nil
		}
		resp := storedResponse{
			Fingerprint: fingerprint,
			Status:      status,
			Body:        string(c.Response().Body()),
			Headers:     map[string]string{},
		}
		for _, h := range replayHeaders {
			if v := c.GetRespHeader(h); v != "" {
				resp.Headers[h] = v
			}
		}
		if err := store.persist(c.UserContext(), cacheKey, resp); err != nil {
			store.logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			store.release(cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}
		return nil
	}
}

func replay(c *fiber.Ctx, stored storedResponse, fingerprint string) error {
	if stored.Fingerprint != fingerprint {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request body")
	}
	for header, value := range stored.Headers {
		c.Set(header, value)
	}
	c.Set(idempotencyReplayed, "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

// lookup returns the stored response for cacheKey. The in-progress marker
// reads as not found; reserve then rejects the duplicate.
func (s *idempotencyStore) lookup(ctx context.Context, cacheKey string) (storedResponse, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, idempotencyOpTimeout)
	defer cancel()

	cached, err := s.cache.Get(ctx, cacheKey).Result()
	if errors.Is(err, redis.Nil) || cached == inProgressMarker {
		return storedResponse{}, false, nil
	}
	if err != nil {
		return storedResponse{}, false, err
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		return storedResponse{}, false, err
	}
	return stored, true, nil
}

func (s *idempotencyStore) reserve(ctx context.Context, cacheKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, idempotencyOpTimeout)
	defer cancel()
	return s.cache.SetNX(ctx, cacheKey, inProgressMarker, s.ttl).Result()
}

func (s *idempotencyStore) persist(ctx context.Context, cacheKey string, resp storedResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, idempotencyOpTimeout)
	defer cancel()
	return s.cache.Set(ctx, cacheKey, payload, s.ttl).Err()
}

// release drops a reservation. It runs after the request context may have
// been cancelled, so it uses its own.
func (s *idempotencyStore) release(cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
	defer cancel()
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn("idempotency release failed", slog.String("cache_key", cacheKey), slog.Any("error", err))
	}
}

func bodyFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
