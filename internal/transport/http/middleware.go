package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
)

const requestIDHeader = "X-Request-Id"

type traceKey struct{}

// requestTrace is filled in by inner handlers and read back by the logger
// once the request completes.
type requestTrace struct {
	id     string
	caller auth.Context
}

// RequestLogger logs method, path, status, caller and latency. An incoming
// X-Request-Id is kept; otherwise one is generated and echoed back.
func RequestLogger(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		trace := &requestTrace{id: r.Header.Get(requestIDHeader)}
		if trace.id == "" {
			trace.id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, trace.id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), traceKey{}, trace)))

		caller := "anonymous"
		if trace.caller.Authenticated() {
			caller = trace.caller.UserID
		}
		logger.Printf(
			"request id=%s method=%s path=%s status=%d caller=%s duration=%s",
			trace.id,
			r.Method,
			r.URL.Path,
			rec.status,
			caller,
			time.Since(start),
		)
	})
}

// noteCaller records the authenticated caller for the request log line.
func noteCaller(ctx context.Context, ac auth.Context) {
	if trace, ok := ctx.Value(traceKey{}).(*requestTrace); ok {
		trace.caller = ac
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working behind the logger.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
