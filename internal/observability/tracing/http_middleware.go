package tracing

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "eoffice/http"

// routeResources maps API route prefixes to the span attribute carrying the
// resource id from the path.
var routeResources = []struct {
	prefix string
	param  string
	key    string
}{
	{"/api/documents/", "id", "eoffice.document_id"},
	{"/api/stock-opnames/", "id", "eoffice.stock_opname_id"},
	{"/api/items/", "id", "eoffice.item_id"},
	{"/api/divisions/", "id", "eoffice.division_id"},
	{"/api/storage-quotas/", "division_id", "eoffice.division_id"},
}

// GinMiddleware opens a server span per request, named after the matched
// route, carrying the resource id and the acting user.
func GinMiddleware() gin.HandlerFunc {
	return newMiddleware(otel.Tracer(tracerName))
}

func newMiddleware(tracer trace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ctx = withRequestBaggage(ctx, c, span)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		attrs = append(attrs, resourceAttributes(route, c.Params)...)
		attrs = append(attrs, actorAttributes(c.Request.Context())...)
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if last := c.Errors.Last(); last != nil {
				if safeErr := SafeError(last.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func withRequestBaggage(ctx context.Context, c *gin.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = c.GetString("request_id")
	}
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

func resourceAttributes(route string, params gin.Params) []attribute.KeyValue {
	for _, res := range routeResources {
		if !strings.HasPrefix(route, res.prefix) {
			continue
		}
		if value := params.ByName(res.param); value != "" {
			return []attribute.KeyValue{attribute.String(res.key, value)}
		}
		return nil
	}
	return nil
}

// actorAttributes are set after the handler chain, once the actor middleware
// has resolved the caller.
func actorAttributes(ctx context.Context) []attribute.KeyValue {
	actor, ok := obscontext.ActorFromContext(ctx)
	if !ok {
		return nil
	}
	attrs := []attribute.KeyValue{
		attribute.String("enduser.id", strconv.FormatInt(actor.UserID, 10)),
		attribute.String("enduser.role", actor.Role),
	}
	if actor.DivisionID != nil {
		attrs = append(attrs, attribute.Int64("eoffice.actor_division_id", *actor.DivisionID))
	}
	return attrs
}
