package handler

import (
	"net/http"

	"github.com/toya-mimura/notes/pkg/identity"
	"github.com/toya-mimura/notes/pkg/ports"
)

type LikeHandler struct {
	service ports.LikeService
}

func NewLikeHandler(service ports.LikeService) *LikeHandler {
	return &LikeHandler{service: service}
}

// Toggle flips the caller's like on a post, keyed by the hashed
// caller IP. Double-clicks land back where they started.
func (h *LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	token := identity.Hash(clientIP(r))

	state, err := h.service.Toggle(r.Context(), r.PathValue("postId"), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// State reports the current count and whether the caller has liked.
func (h *LikeHandler) State(w http.ResponseWriter, r *http.Request) {
	token := identity.Hash(clientIP(r))

	state, err := h.service.State(r.Context(), r.PathValue("postId"), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
