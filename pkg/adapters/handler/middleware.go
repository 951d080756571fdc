package handler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/toya-mimura/notes/pkg/config"
	"github.com/toya-mimura/notes/pkg/core/domain"
	"github.com/toya-mimura/notes/pkg/identity"
	"github.com/toya-mimura/notes/pkg/ratelimit"
	"github.com/toya-mimura/notes/pkg/session"
)

// aiCrawlers is the fixed block-list applied to every request and
// mirrored in robots.txt.
var aiCrawlers = []string{
	"GPTBot",
	"ChatGPT-User",
	"CCBot",
	"Google-Extended",
	"anthropic-ai",
	"ClaudeBot",
	"Claude-Web",
	"PerplexityBot",
	"Bytespider",
	"Omgilibot",
	"FacebookBot",
	"Diffbot",
	"cohere-ai",
}

const sessionCookie = "session"

type contextKey string

const identityKey contextKey = "identity"

type Middleware struct {
	gate           *session.Gate
	limiter        *ratelimit.Limiter
	allowedOrigins []string
}

func NewMiddleware(cfg *config.Config, gate *session.Gate, limiter *ratelimit.Limiter) *Middleware {
	return &Middleware{
		gate:           gate,
		limiter:        limiter,
		allowedOrigins: cfg.AllowedOrigins,
	}
}

// BlockBots rejects requests whose User-Agent matches the crawler
// block-list before they spend rate-limit quota or reach a handler.
func (m *Middleware) BlockBots(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()
		for _, sig := range aiCrawlers {
			if strings.Contains(ua, sig) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit applies the fixed-window limiter keyed by the hashed
// client IP. Rejections carry a Retry-After hint.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := identity.Hash(clientIP(r))
		if !m.limiter.Allow(r.Context(), token) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.limiter.RetryAfter().Seconds())))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORS echoes Access-Control-Allow-Origin only for configured origins.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, allowed := range m.allowedOrigins {
				if origin == allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Vary", "Origin")
					break
				}
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession gates mutating admin routes behind the access gate.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ident, err := m.gate.Authorize(r.Context(), cookie.Value)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) *domain.Identity {
	ident, _ := ctx.Value(identityKey).(*domain.Identity)
	return ident
}

// clientIP prefers the first X-Forwarded-For hop, since the service
// sits behind an edge proxy in production.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
