package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"consultly/internal/domain"
	"consultly/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const maxErrorBody = 64 << 10

// envelope is the wrapper both backend APIs put around payloads.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// base holds what the booking and payment clients share: transport, optional
// Redis cache for GET endpoints and error mapping.
type base struct {
	service    string
	baseURL    string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

func newBase(service, baseURL string, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return base{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *base) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseHTTPClient swaps the underlying transport.
func (c *base) UseHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

func (c *base) cacheKey(parts ...string) string {
	return c.service + ":" + strings.Join(parts, ":")
}

func (c *base) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *base) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *base) dropCache(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	_ = c.redis.Del(ctx, keys...).Err()
}

func (c *base) doGet(ctx context.Context, op, token, path string, out any) error {
	return c.doJSON(ctx, op, http.MethodGet, token, path, nil, out)
}

func (c *base) doJSON(ctx context.Context, op, method, token, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, op, out)
}

func (c *base) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(c.service, op, 0, time.Since(start))
		return fmt.Errorf("%w: %s %s: %v", domain.ErrUnavailable, c.service, op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(c.service, op, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.apiError(resp.StatusCode, raw)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: read body: %v", domain.ErrUnavailable, c.service, op, err)
	}
	return decodePayload(raw, out)
}

// decodePayload accepts both enveloped ({"data": ...}) and bare payloads.
func decodePayload(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if env.Success != nil && !*env.Success {
			return fmt.Errorf("unsuccessful response: %s", env.Message)
		}
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(raw, out)
}

func (c *base) apiError(status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		switch {
		case env.Message != "":
			msg = env.Message
		case env.Error != "":
			msg = env.Error
		}
	}
	return &domain.APIError{
		Service:    c.service,
		StatusCode: status,
		Message:    msg,
		Kind:       classify(status, msg),
	}
}

// classify maps an API failure onto the domain taxonomy. The message is
// consulted first since the backends reuse 400 for several conditions.
func classify(status int, msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "already reviewed"), strings.Contains(lower, "already been reviewed"),
		strings.Contains(lower, "already rated"):
		return domain.ErrAlreadyReviewed
	case strings.Contains(lower, "invalid transition"), strings.Contains(lower, "invalid status transition"),
		strings.Contains(lower, "cannot transition"), strings.Contains(lower, "cannot be changed"):
		return domain.ErrInvalidTransition
	}

	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case status == http.StatusPaymentRequired:
		return domain.ErrPaymentFailed
	case status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusConflict:
		return domain.ErrInvalidTransition
	case status >= 500:
		return domain.ErrUnavailable
	default:
		return nil
	}
}
