package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"facultyleave/internal/requestctx"
	"facultyleave/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyCache is the subset of the redis cache used to remember responses.
type IdempotencyCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// idempotencyRecord is stored under the key. Status zero marks a request still in flight.
type idempotencyRecord struct {
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type bufferedResponse struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// Idempotency replays the stored response when a client retries a POST or PUT with the
// same Idempotency-Key and body. The same key with a different body is a conflict. Without
// a cache, or without the header, requests pass through.
func Idempotency(cache IdempotencyCache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if cache == nil || key == "" || (r.Method != http.MethodPost && r.Method != http.MethodPut) {
				next.ServeHTTP(w, r)
				return
			}
			reqID := GetRequestID(r.Context())

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "unable to read request body", reqID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			hash := RequestHash(raw)

			actor := "anonymous"
			if user, ok := GetUser(r.Context()); ok {
				actor = user.EmployeeID
			}
			cacheKey := "idem:" + actor + ":" + r.Method + ":" + r.URL.Path + ":" + key
			ctx := requestctx.WithIdempotencyKey(r.Context(), key)

			claimed, err := cache.SetNX(ctx, cacheKey, idempotencyRecord{Hash: hash}, ttl)
			if err != nil {
				slog.Warn("idempotency claim failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				var stored idempotencyRecord
				found, err := cache.GetJSON(ctx, cacheKey, &stored)
				if err != nil || !found {
					api.Fail(w, http.StatusConflict, "idempotency_in_progress", "a request with this idempotency key is in progress", reqID)
					return
				}
				if stored.Hash != hash {
					api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", reqID)
					return
				}
				if stored.Status == 0 {
					api.Fail(w, http.StatusConflict, "idempotency_in_progress", "a request with this idempotency key is in progress", reqID)
					return
				}
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set("Idempotent-Replay", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			buf := &bufferedResponse{ResponseWriter: w}
			next.ServeHTTP(buf, r.WithContext(ctx))

			// Server failures release the key so the client can retry.
			if buf.status == 0 || buf.status >= 500 {
				if err := cache.Delete(context.WithoutCancel(ctx), cacheKey); err != nil {
					slog.Warn("idempotency release failed", "key", key, "err", err)
				}
				return
			}
			record := idempotencyRecord{
				Hash:        hash,
				Status:      buf.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        buf.body.Bytes(),
			}
			if err := cache.SetJSON(context.WithoutCancel(ctx), cacheKey, record, ttl); err != nil {
				slog.Warn("idempotency store failed", "key", key, "err", err)
			}
		})
	}
}
