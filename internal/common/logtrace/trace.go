package logtrace

import (
	"context"
	"os"
)

type requestIdContextKey string

// RequestIdKey is the context key under which middleware.RequestLogger stores the request id.
const RequestIdKey = requestIdContextKey("requestId")

func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(RequestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}

// IsTraceEnabled reports whether route tables and other verbose diagnostics are printed.
func IsTraceEnabled() bool {
	return os.Getenv("TENANCY_TRACE") == "1"
}
