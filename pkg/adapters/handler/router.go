package handler

import (
	"net/http"

	"github.com/toya-mimura/notes/pkg/config"
	"github.com/toya-mimura/notes/pkg/ports"
	"github.com/toya-mimura/notes/pkg/ratelimit"
	"github.com/toya-mimura/notes/pkg/session"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, posts ports.PostService, likes ports.LikeService, sessions ports.SessionStore, kv ports.KeyValueStore) http.Handler {
	gate := session.NewGate(sessions, cfg.AdminEmail)

	// Initialize Handlers
	ph := NewPostHandler(posts, cfg.BaseURL)
	lh := NewLikeHandler(likes)
	uh := NewUploadHandler(cfg.UploadDir, cfg.BaseURL)
	authHandler := NewAuthHandler(cfg, sessions, gate)

	// Initialize Middleware
	limiter := ratelimit.New(kv, ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	mw := NewMiddleware(cfg, gate, limiter)

	// Setup Router
	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /robots.txt", Robots)
	mux.HandleFunc("GET /api/posts", ph.List)
	mux.HandleFunc("GET /api/posts/{id}", ph.Get)
	mux.HandleFunc("GET /api/tags", ph.Tags)
	mux.HandleFunc("POST /api/like/{postId}", lh.Toggle)
	mux.HandleFunc("GET /api/likes/{postId}", lh.State)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)
	mux.Handle("GET /auth/me", mw.RequireSession(http.HandlerFunc(authHandler.Me)))

	// Uploaded images
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	// Mutating admin routes, all behind the access gate
	mux.Handle("POST /api/posts", mw.RequireSession(http.HandlerFunc(ph.Create)))
	mux.Handle("PUT /api/posts/{id}", mw.RequireSession(http.HandlerFunc(ph.Update)))
	mux.Handle("DELETE /api/posts/{id}", mw.RequireSession(http.HandlerFunc(ph.Delete)))
	mux.Handle("PUT /api/posts/{id}/pin", mw.RequireSession(http.HandlerFunc(ph.Pin)))
	mux.Handle("POST /api/upload", mw.RequireSession(http.HandlerFunc(uh.Upload)))

	// Every request passes the bot filter and the rate limiter before
	// any handler; CORS wraps the lot so rejections carry headers too.
	return mw.CORS(mw.BlockBots(mw.RateLimit(mux)))
}
