package context

import (
	"context"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

// Actor identifies the authenticated user behind a request.
type Actor struct {
	UserID     int64
	Role       string
	DivisionID *int64
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// EnsureRequestID returns ctx carrying a request id, generating a ULID when absent.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return WithRequestID(ctx, id), id
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// ActorFields returns log-friendly string forms of the actor.
func ActorFields(ctx context.Context) (userID, role, divisionID string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "", "", ""
	}
	userID = strconv.FormatInt(actor.UserID, 10)
	role = actor.Role
	if actor.DivisionID != nil {
		divisionID = strconv.FormatInt(*actor.DivisionID, 10)
	}
	return userID, role, divisionID
}
