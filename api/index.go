package handler

import (
	"context"
	"net/http"

	"github.com/toya-mimura/notes/pkg/adapters/handler"
	kvredis "github.com/toya-mimura/notes/pkg/adapters/kv/redis"
	"github.com/toya-mimura/notes/pkg/adapters/repository/sqlite"
	"github.com/toya-mimura/notes/pkg/config"
	"github.com/toya-mimura/notes/pkg/core/services"
	"github.com/toya-mimura/notes/pkg/ports"
	"github.com/toya-mimura/notes/pkg/session"
)

var mux http.Handler

func init() {
	cfg := config.Load()

	// Note: on serverless hosts local sqlite files are ephemeral; point
	// DATABASE_URL at a remote libsql/Turso instance there.
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	var kv ports.KeyValueStore
	if cfg.RedisURL != "" {
		store, err := kvredis.New(context.Background(), cfg.RedisURL)
		if err != nil {
			panic(err)
		}
		kv = store
	}

	postService := services.NewPostService(repo)
	likeService := services.NewLikeService(repo)
	sessions := session.NewStore(kv)

	mux = handler.NewRouter(cfg, postService, likeService, sessions, kv)
}

// Handler is the entrypoint for serverless deploys
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
