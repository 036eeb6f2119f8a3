package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/docshelf/docshelf/pkg/httputil"
	"github.com/docshelf/docshelf/pkg/observability"
)

// ActorHeader names the acting user for every API call. The value is
// the numeric user ID; upstream authentication is expected to have
// verified it.
const ActorHeader = "X-Docshelf-User"

// RequestIDHeader carries the request ID, generated here when the
// client does not supply one.
const RequestIDHeader = "X-Request-Id"

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := observability.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorMiddleware resolves the acting user from the header and rejects
// requests without one. Handlers downstream read the actor from
// context, never from ambient state.
func (s *Server) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(ActorHeader)
		if header == "" {
			httputil.WriteUnauthorized(w, "missing "+ActorHeader+" header")
			return
		}

		actorID, err := strconv.ParseInt(header, 10, 64)
		if err != nil || actorID <= 0 {
			httputil.WriteUnauthorized(w, "invalid "+ActorHeader+" header")
			return
		}

		ctx := observability.WithActorID(r.Context(), actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx := r.Context()
		if s.logger != nil {
			ctx = observability.WithLogger(ctx, s.logger)
		}
		if s.metrics != nil {
			s.metrics.IncActiveRequests()
			defer s.metrics.DecActiveRequests()
		}

		next.ServeHTTP(recorder, r.WithContext(ctx))

		duration := time.Since(start)
		route := routeTemplate(r)

		if s.metrics != nil {
			s.metrics.ObserveHTTPRequest(r.Method, route, recorder.status, duration)
		}
		if s.logger != nil {
			observability.FromContext(ctx).WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      recorder.status,
				"duration_ms": duration.Milliseconds(),
			}).Info("request completed")
		}
	})
}

// routeTemplate returns the mux route pattern so metrics are not
// exploded by path parameters.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return "unmatched"
}

// actorFrom reads the acting user set by actorMiddleware.
func actorFrom(r *http.Request) int64 {
	return observability.GetActorID(r.Context())
}
