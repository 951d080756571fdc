package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/toya-mimura/notes/pkg/adapters/handler"
	kvredis "github.com/toya-mimura/notes/pkg/adapters/kv/redis"
	"github.com/toya-mimura/notes/pkg/adapters/repository/sqlite"
	"github.com/toya-mimura/notes/pkg/config"
	"github.com/toya-mimura/notes/pkg/core/services"
	"github.com/toya-mimura/notes/pkg/ports"
	"github.com/toya-mimura/notes/pkg/session"
)

func main() {
	cfg := config.Load()

	// Initialize Repository
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Key-value store: Redis when configured. Without it the rate
	// limiter fails open and sessions cannot be created, so logins are
	// effectively disabled but reads keep working.
	var kv ports.KeyValueStore
	if cfg.RedisURL != "" {
		store, err := kvredis.New(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		kv = store
	} else {
		log.Printf("REDIS_URL not set; rate limiting disabled and sessions unavailable")
	}

	// Initialize Services
	postService := services.NewPostService(repo)
	likeService := services.NewLikeService(repo)
	sessions := session.NewStore(kv)

	// Initialize Router
	mux := handler.NewRouter(cfg, postService, likeService, sessions, kv)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
