package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"drive-go/internal/drive"
)

// ShareLinkHeader carries a share-link token alongside or instead of a
// bearer credential. The "link" query parameter is accepted as well.
const ShareLinkHeader = "X-Share-Link"

type contextKey string

const actorKey contextKey = "actor"

// ActorFrom returns the actor resolved by Authenticate. Requests that never
// passed through it are anonymous.
func ActorFrom(ctx context.Context) drive.Actor {
	a, _ := ctx.Value(actorKey).(drive.Actor)
	return a
}

func withActor(ctx context.Context, a drive.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. ok is false when a header is present but malformed.
func bearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", true
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authenticate resolves the bearer credential and share-link token of a
// request into a drive.Actor. A present but invalid credential is rejected
// with 401. Requests without one continue anonymously and the engine decides
// whether that is enough.
func Authenticate(verifier drive.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, string(drive.KindUnauthenticated), "invalid authorization header")
				return
			}

			var actor drive.Actor
			if token != "" {
				userID, err := verifier.Verify(r.Context(), token)
				if err != nil {
					writeError(w, http.StatusUnauthorized, string(drive.KindUnauthenticated), "token invalid or expired")
					return
				}
				actor.UserID = userID
			}

			actor.LinkToken = r.Header.Get(ShareLinkHeader)
			if actor.LinkToken == "" {
				actor.LinkToken = r.URL.Query().Get("link")
			}

			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
		})
	}
}

// RequestLogger logs every request with its status, duration and size.
// 4xx responses log at WARN, 5xx at ERROR.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drive_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Metrics records request counts and latencies labelled with the matched
// route pattern, which keeps resource IDs out of the label set.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
