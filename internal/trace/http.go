package trace

import "net/http"

// Middleware continues the trace from the request headers and echoes it in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := extractFromHeaders(r)
		w.Header().Set(TraceparentKey, tc.Traceparent())
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

func extractFromHeaders(r *http.Request) Context {
	if tc, ok := ParseTraceparent(r.Header.Get(TraceparentKey)); ok {
		return tc
	}
	tc := Context{
		TraceID:      r.Header.Get(TraceIDKey),
		ParentSpanID: r.Header.Get(SpanIDKey),
		SpanID:       generateSpanID(),
	}
	if tc.TraceID == "" {
		tc.TraceID = generateTraceID()
	}
	return tc
}
