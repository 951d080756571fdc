package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toya-mimura/notes/pkg/core/domain"
	"github.com/toya-mimura/notes/pkg/ports"
)

type PostService struct {
	repo      ports.PostRepository
	allocator *idAllocator
}

func NewPostService(repo ports.PostRepository) *PostService {
	return &PostService{
		repo:      repo,
		allocator: newIDAllocator(repo.PostExists),
	}
}

func (s *PostService) Create(ctx context.Context, content, imageURL string, imageSensitive bool, tags []string, pinned bool) (*domain.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	now := time.Now()
	post := &domain.Post{
		Content:        content,
		ImageURL:       imageURL,
		ImageSensitive: imageSensitive,
		Tags:           normalizeTags(tags),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The allocator pre-checks existence, but two creates in the same
	// second can still race between check and insert. The primary key
	// rejects the loser, which re-enters allocation.
	created := false
	for attempt := 0; attempt < maxIDAttempts && !created; attempt++ {
		id, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, err
		}
		post.ID = id

		switch err := s.repo.CreatePost(ctx, post, post.Tags); {
		case err == nil:
			created = true
		case errors.Is(err, domain.ErrConflict):
			s.allocator.sleep(time.Second)
		default:
			return nil, err
		}
	}
	if !created {
		return nil, errIDExhausted
	}

	if pinned {
		if err := s.repo.SetPinned(ctx, post.ID, true); err != nil {
			return nil, err
		}
		post.IsPinned = true
	}

	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, id, content, imageURL string, imageSensitive bool, tags []string) (*domain.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domain.ErrNotFound
	}

	post.Content = content
	post.ImageURL = imageURL
	post.ImageSensitive = imageSensitive
	post.Tags = normalizeTags(tags)
	post.UpdatedAt = time.Now()

	// The tag set is fully replaced, not diffed.
	if err := s.repo.UpdatePost(ctx, post, post.Tags); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, id string) error {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return domain.ErrNotFound
	}
	return s.repo.DeletePost(ctx, id)
}

func (s *PostService) List(ctx context.Context, limit, offset int, tag string, pinned *bool) ([]domain.Post, int64, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	filters := map[string]interface{}{
		"tag": tag,
	}
	if pinned != nil {
		filters["pinned"] = *pinned
	}

	posts, err := s.repo.ListPosts(ctx, limit, offset, filters)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.CountPosts(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	return posts, count, nil
}

func (s *PostService) SetPinned(ctx context.Context, id string, pinned bool) error {
	exists, err := s.repo.PostExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return s.repo.SetPinned(ctx, id, pinned)
}

func (s *PostService) Tags(ctx context.Context) ([]domain.TagCount, error) {
	return s.repo.ListTags(ctx)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

var _ ports.PostService = (*PostService)(nil)
