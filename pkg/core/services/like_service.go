package services

import (
	"context"

	"github.com/toya-mimura/notes/pkg/core/domain"
	"github.com/toya-mimura/notes/pkg/ports"
)

type LikeService struct {
	repo ports.PostRepository
}

func NewLikeService(repo ports.PostRepository) *LikeService {
	return &LikeService{repo: repo}
}

// Toggle flips the (post, client token) membership and returns the
// resulting count and state. The repository performs the flip inside a
// transaction with UNIQUE(post_id, ip_hash) as the backstop, so two
// concurrent toggles from the same client never leave two rows.
func (s *LikeService) Toggle(ctx context.Context, postID, clientToken string) (*domain.LikeState, error) {
	exists, err := s.repo.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return s.repo.ToggleLike(ctx, postID, clientToken)
}

func (s *LikeService) State(ctx context.Context, postID, clientToken string) (*domain.LikeState, error) {
	exists, err := s.repo.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetLikeState(ctx, postID, clientToken)
}

var _ ports.LikeService = (*LikeService)(nil)
