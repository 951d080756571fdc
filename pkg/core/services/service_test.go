package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/toya-mimura/notes/pkg/adapters/repository/sqlite"
	"github.com/toya-mimura/notes/pkg/core/domain"
	"github.com/toya-mimura/notes/pkg/core/services"
)

func newRepo(t *testing.T) *sqlite.SQLiteRepository {
	t.Helper()
	dbURL := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	repo, err := sqlite.NewSQLiteRepository(dbURL)
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	return repo
}

func TestCreateAndGetPost(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)

	post, err := svc.Create(ctx, "# Hi", "", false, []string{"a", "b"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(post.ID) != 14 {
		t.Errorf("id %q is not 14 chars", post.ID)
	}

	got, err := svc.Get(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "# Hi" {
		t.Errorf("content = %q", got.Content)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" || got.Tags[1] != "b" {
		t.Errorf("tags = %v, want [a b]", got.Tags)
	}
	if got.Likes != 0 {
		t.Errorf("likes = %d, want 0", got.Likes)
	}
}

func TestCreateRejectsEmptyContent(t *testing.T) {
	svc := services.NewPostService(newRepo(t))
	if _, err := svc.Create(context.Background(), "   ", "", false, nil, false); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestGetMissingPost(t *testing.T) {
	svc := services.NewPostService(newRepo(t))
	if _, err := svc.Get(context.Background(), "19700101000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateReplacesTagSet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)

	post, err := svc.Create(ctx, "before", "", false, []string{"a", "b"}, false)
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, post.ID, "after", "", true, []string{"c"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Content != "after" || !updated.ImageSensitive {
		t.Errorf("fields not replaced: %+v", updated)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "c" {
		t.Errorf("tags = %v, want [c]", updated.Tags)
	}

	// Orphaned tags drop out of the tag listing.
	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Name != "c" || tags[0].Count != 1 {
		t.Errorf("tag counts = %v, want [{c 1}]", tags)
	}
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)
	likes := services.NewLikeService(repo)

	post, err := svc.Create(ctx, "bye", "", false, []string{"a"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := likes.Toggle(ctx, post.ID, "token-1"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, post.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("post survived delete: %v", err)
	}
	tags, _ := svc.Tags(ctx)
	if len(tags) != 0 {
		t.Errorf("tag listing still shows %v after cascade", tags)
	}
	if err := svc.Delete(ctx, post.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete got %v, want ErrNotFound", err)
	}
}

func TestLikeToggleIdempotence(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)
	likes := services.NewLikeService(repo)

	post, err := svc.Create(ctx, "likeable", "", false, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	state, err := likes.Toggle(ctx, post.ID, "token-1")
	if err != nil {
		t.Fatal(err)
	}
	if !state.Liked || state.Likes != 1 {
		t.Errorf("first toggle = %+v, want liked=true likes=1", state)
	}

	state, err = likes.Toggle(ctx, post.ID, "token-1")
	if err != nil {
		t.Fatal(err)
	}
	if state.Liked || state.Likes != 0 {
		t.Errorf("second toggle = %+v, want liked=false likes=0", state)
	}

	if _, err := likes.Toggle(ctx, "19700101000000", "token-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("toggle on missing post got %v, want ErrNotFound", err)
	}
}

func TestLikeToggleConcurrentSamePair(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)
	likes := services.NewLikeService(repo)

	post, err := svc.Create(ctx, "raced", "", false, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Both outcomes are legal under contention; the invariant
			// is at most one row per pair, checked below.
			_, _ = likes.Toggle(ctx, post.ID, "token-1")
		}()
	}
	wg.Wait()

	state, err := likes.State(ctx, post.ID, "token-1")
	if err != nil {
		t.Fatal(err)
	}
	if state.Likes != 0 && state.Likes != 1 {
		t.Errorf("likes = %d, want 0 or 1", state.Likes)
	}
	if (state.Likes == 1) != state.Liked {
		t.Errorf("count %d disagrees with liked=%v", state.Likes, state.Liked)
	}
}

func TestPinInvariant(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)

	a, err := svc.Create(ctx, "post a", "", false, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Create(ctx, "post b", "", false, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.SetPinned(ctx, b.ID, true); err != nil {
		t.Fatal(err)
	}

	pinned := true
	posts, count, err := svc.List(ctx, 10, 0, "", &pinned)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || len(posts) != 1 {
		t.Fatalf("pinned count = %d, want exactly one", count)
	}
	if posts[0].ID != b.ID {
		t.Errorf("pinned post = %s, want %s", posts[0].ID, b.ID)
	}

	gotA, _ := svc.Get(ctx, a.ID)
	if gotA.IsPinned {
		t.Error("previous pin not cleared")
	}

	// Unpin touches only the target.
	if err := svc.SetPinned(ctx, b.ID, false); err != nil {
		t.Fatal(err)
	}
	_, count, err = svc.List(ctx, 10, 0, "", &pinned)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("pinned count after unpin = %d, want 0", count)
	}

	if err := svc.SetPinned(ctx, "19700101000000", true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("pin on missing post got %v, want ErrNotFound", err)
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)

	first, err := svc.Create(ctx, "first", "", false, []string{"go"}, false)
	if err != nil {
		t.Fatal(err)
	}
	// Distinct ids force distinct seconds, so creates are spaced by the
	// allocator itself; nothing to do here.
	second, err := svc.Create(ctx, "second", "", false, []string{"go", "sql"}, false)
	if err != nil {
		t.Fatal(err)
	}

	posts, count, err := svc.List(ctx, 10, 0, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if posts[0].ID != second.ID {
		t.Errorf("newest post not first: %v", posts[0].ID)
	}

	// Pinned floats to the top regardless of age.
	if err := svc.SetPinned(ctx, first.ID, true); err != nil {
		t.Fatal(err)
	}
	posts, _, err = svc.List(ctx, 10, 0, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if posts[0].ID != first.ID {
		t.Errorf("pinned post not listed first")
	}

	posts, count, err = svc.List(ctx, 10, 0, "sql", nil)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || posts[0].ID != second.ID {
		t.Errorf("tag filter returned %v (count %d)", posts, count)
	}
}

func TestTagListingExcludesZeroAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := services.NewPostService(repo)

	a, err := svc.Create(ctx, "a", "", false, []string{"go", "notes"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "b", "", false, []string{"go"}, false); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Name != "go" || tags[0].Count != 1 {
		t.Errorf("tags = %v, want [{go 1}]", tags)
	}
}
