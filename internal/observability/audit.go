package observability

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
	}
	base = appendTraceID(base, r.Context())
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}

// AuditCtx is the request-free variant for code below the HTTP layer.
func AuditCtx(ctx context.Context, event string, attrs ...any) {
	base := appendTraceID([]any{"event", event}, ctx)
	base = append(base, attrs...)
	slog.InfoContext(ctx, "audit", base...)
}

func appendTraceID(attrs []any, ctx context.Context) []any {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		attrs = append(attrs, "trace_id", sc.TraceID().String())
	}
	return attrs
}
