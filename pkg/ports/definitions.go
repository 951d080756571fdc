package ports

import (
	"context"
	"time"

	"github.com/toya-mimura/notes/pkg/core/domain"
)

// PostRepository defines storage operations for posts and their relations.
// Uniqueness invariants (posts.id, tags.name, one like per post+ip_hash) are
// enforced by the store itself; implementations return domain.ErrConflict
// when a write loses a race against one of them.
type PostRepository interface {
	CreatePost(ctx context.Context, post *domain.Post, tags []string) error
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post, tags []string) error
	DeletePost(ctx context.Context, id string) error // Cascades post_tags, likes
	ListPosts(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Post, error)
	CountPosts(ctx context.Context, filters map[string]interface{}) (int64, error)
	PostExists(ctx context.Context, id string) (bool, error)

	// SetPinned clears every existing pin before setting a new one, in a
	// single transaction. Unpinning touches only the target row.
	SetPinned(ctx context.Context, id string, pinned bool) error

	ListTags(ctx context.Context) ([]domain.TagCount, error)

	// Likes
	ToggleLike(ctx context.Context, postID, ipHash string) (*domain.LikeState, error)
	GetLikeState(ctx context.Context, postID, ipHash string) (*domain.LikeState, error)
}

// KeyValueStore is the volatile keyed store behind sessions and rate
// windows. Keys expire on their own; there is no in-process cache in
// front of it.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Increment adds one to the counter at key and returns the new value.
	// The TTL is armed only when the increment creates the key, so the
	// window expires relative to its first request.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// PostService defines the business logic for posts.
type PostService interface {
	Create(ctx context.Context, content, imageURL string, imageSensitive bool, tags []string, pinned bool) (*domain.Post, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	Update(ctx context.Context, id, content, imageURL string, imageSensitive bool, tags []string) (*domain.Post, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int, tag string, pinned *bool) ([]domain.Post, int64, error)
	SetPinned(ctx context.Context, id string, pinned bool) error
	Tags(ctx context.Context) ([]domain.TagCount, error)
}

// LikeService toggles and reports anonymous likes keyed by client token.
type LikeService interface {
	Toggle(ctx context.Context, postID, clientToken string) (*domain.LikeState, error)
	State(ctx context.Context, postID, clientToken string) (*domain.LikeState, error)
}

// SessionStore keeps opaque-token sessions with a fixed TTL.
type SessionStore interface {
	Create(ctx context.Context, identity domain.Identity) (string, error)
	Lookup(ctx context.Context, token string) (*domain.Identity, error)
	Destroy(ctx context.Context, token string) error
}
