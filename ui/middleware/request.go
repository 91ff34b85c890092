package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"recolookup/internal/logging"
)

// RequestID accepts an incoming X-Request-Id or assigns a UUID, then hands off
// to chi's RequestID and stores the ID for logging.Ctx
func RequestID(next http.Handler) http.Handler {
	chiRequestID := chimw.RequestID(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(chimw.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(chimw.RequestIDHeader, id)
		}
		w.Header().Set(chimw.RequestIDHeader, id)

		ctx := logging.ContextWithRequestID(r.Context(), id)
		chiRequestID.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request with zerolog
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			log := logging.Ctx(r.Context())
			event := log.Info()
			switch {
			case status >= http.StatusInternalServerError:
				event = log.Error()
			case status >= http.StatusBadRequest:
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}
