package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	authkit "github.com/amaeats/authkit"
)

const requestIDHeader = "X-Request-Id"

// RequestID injects and echoes a request correlation ID. A client-supplied
// X-Request-Id is kept; otherwise one is generated. The client address is
// taken from the socket; forwarding headers are ignored.
func RequestID() func(http.Handler) http.Handler {
	return requestID(false)
}

// RequestIDTrustProxy is [RequestID] for deployments behind a trusted
// reverse proxy: the client address is read from X-Forwarded-For (first
// hop) or X-Real-Ip before falling back to the socket address. Only use
// it when every hop in front of the server strips or overwrites those
// headers, otherwise clients can spoof their address.
func RequestIDTrustProxy() func(http.Handler) http.Handler {
	return requestID(true)
}

func requestID(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := authkit.WithRequestID(r.Context(), requestID)
			ctx = authkit.WithClientIP(ctx, clientIP(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			logger.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", authkit.RequestIDFromContext(r.Context())),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// The first hop of X-Forwarded-For is the original client;
		// proxies append themselves after it.
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
