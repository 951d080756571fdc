package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/toya-mimura/notes/pkg/core/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	return repo
}

func seed(t *testing.T, repo *SQLiteRepository, id string, tags ...string) *domain.Post {
	t.Helper()
	now := time.Now()
	post := &domain.Post{ID: id, Content: "content " + id, CreatedAt: now, UpdatedAt: now}
	if err := repo.CreatePost(context.Background(), post, tags); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return post
}

func TestPrimaryKeyIsTheArbiter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo, "20240307090502")

	dup := &domain.Post{ID: "20240307090502", Content: "dup", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	err := repo.CreatePost(ctx, dup, nil)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate id got %v, want ErrConflict", err)
	}

	// The losing transaction must not leave partial rows behind.
	got, err := repo.GetPost(ctx, "20240307090502")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "content 20240307090502" {
		t.Errorf("original post clobbered: %q", got.Content)
	}
}

func TestGetPostMissing(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.GetPost(context.Background(), "19700101000000")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("GetPost = %+v, want nil", got)
	}
}

func TestToggleLikeDeleteFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	post := seed(t, repo, "20240307090502")

	state, err := repo.ToggleLike(ctx, post.ID, "hash-a")
	if err != nil {
		t.Fatal(err)
	}
	if !state.Liked || state.Likes != 1 {
		t.Fatalf("first toggle = %+v", state)
	}

	// A second client stacks on the same post.
	state, err = repo.ToggleLike(ctx, post.ID, "hash-b")
	if err != nil {
		t.Fatal(err)
	}
	if !state.Liked || state.Likes != 2 {
		t.Fatalf("second client toggle = %+v", state)
	}

	// First client withdraws.
	state, err = repo.ToggleLike(ctx, post.ID, "hash-a")
	if err != nil {
		t.Fatal(err)
	}
	if state.Liked || state.Likes != 1 {
		t.Fatalf("withdraw = %+v", state)
	}
}

func TestSetPinnedClearBeforeSet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := seed(t, repo, "20240307090502")
	b := seed(t, repo, "20240307090503")

	if err := repo.SetPinned(ctx, a.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetPinned(ctx, b.ID, true); err != nil {
		t.Fatal(err)
	}

	count, err := repo.CountPosts(ctx, map[string]interface{}{"pinned": true})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("pinned count = %d, want exactly 1", count)
	}

	got, _ := repo.GetPost(ctx, b.ID)
	if !got.IsPinned {
		t.Error("target post not pinned")
	}
}

func TestTagNameUnique(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo, "20240307090502", "go")
	seed(t, repo, "20240307090503", "go")

	tags, err := repo.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Count != 2 {
		t.Errorf("tags = %v, want one 'go' row counting 2", tags)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Error("nil classified as unique violation")
	}
	if isUniqueViolation(errors.New("disk I/O error")) {
		t.Error("unrelated error classified as unique violation")
	}
	if !isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: posts.id (1555)")) {
		t.Error("driver unique error not recognized")
	}
}
