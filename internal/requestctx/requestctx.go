package requestctx

import "context"

type ctxKey string

const (
	requestIDKey      ctxKey = "request_id"
	idempotencyKeyKey ctxKey = "idempotency_key"
	accessKey         ctxKey = "access"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// Access collects what inner middleware learns about a request for its access line.
type Access struct {
	Actor          string
	Role           string
	IdempotencyKey string
}

func WithAccess(ctx context.Context) (context.Context, *Access) {
	a := &Access{}
	return context.WithValue(ctx, accessKey, a), a
}

// GetAccess returns nil outside a logged request.
func GetAccess(ctx context.Context) *Access {
	a, _ := ctx.Value(accessKey).(*Access)
	return a
}

func SetActor(ctx context.Context, actor, role string) {
	if a := GetAccess(ctx); a != nil {
		a.Actor, a.Role = actor, role
	}
}

// WithIdempotencyKey carries the client's Idempotency-Key header and stamps it on the
// access line, so a replayed action can be correlated with the first attempt.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if a := GetAccess(ctx); a != nil {
		a.IdempotencyKey = key
	}
	return context.WithValue(ctx, idempotencyKeyKey, key)
}

func GetIdempotencyKey(ctx context.Context) string {
	if value, ok := ctx.Value(idempotencyKeyKey).(string); ok {
		return value
	}
	return ""
}
