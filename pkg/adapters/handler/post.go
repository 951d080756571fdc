package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/toya-mimura/notes/pkg/core/domain"
	"github.com/toya-mimura/notes/pkg/ports"
)

type PostHandler struct {
	service ports.PostService
	baseURL string
}

func NewPostHandler(service ports.PostService, baseURL string) *PostHandler {
	return &PostHandler{service: service, baseURL: baseURL}
}

// CreatePostRequest payload
type CreatePostRequest struct {
	Content        string   `json:"content"`
	ImageURL       string   `json:"image_url,omitempty"`
	ImageSensitive bool     `json:"image_sensitive,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	IsPinned       bool     `json:"is_pinned,omitempty"`
}

// UpdatePostRequest payload
type UpdatePostRequest struct {
	Content        string   `json:"content"`
	ImageURL       string   `json:"image_url,omitempty"`
	ImageSensitive bool     `json:"image_sensitive,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

type PinRequest struct {
	Pinned bool `json:"pinned"`
}

type postResponse struct {
	domain.Post
	URL string `json:"url"`
}

func (h *PostHandler) respond(p *domain.Post) postResponse {
	return postResponse{Post: *p, URL: h.baseURL + "/posts/" + p.ID}
}

// Create Post
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.service.Create(r.Context(), req.Content, req.ImageURL, req.ImageSensitive, req.Tags, req.IsPinned)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.respond(post))
}

// Get one Post with tags and like count
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(post))
}

// List Posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	tag := r.URL.Query().Get("tag")

	var pinned *bool
	if raw := r.URL.Query().Get("pinned"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pinned value")
			return
		}
		pinned = &v
	}

	posts, count, err := h.service.List(r.Context(), limit, offset, tag, pinned)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data := make([]postResponse, 0, len(posts))
	for i := range posts {
		data = append(data, h.respond(&posts[i]))
	}

	resp := map[string]interface{}{
		"data":   data,
		"total":  count,
		"limit":  limit,
		"offset": offset,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update Post (fields and tag set fully replaced)
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.service.Update(r.Context(), r.PathValue("id"), req.Content, req.ImageURL, req.ImageSensitive, req.Tags)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(post))
}

// Delete Post
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pin sets or clears the single pinned post.
func (h *PostHandler) Pin(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetPinned(r.Context(), r.PathValue("id"), req.Pinned); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pinned": req.Pinned})
}

// Tags lists tag names with post counts; tags with no posts are left out.
func (h *PostHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.Tags(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tags == nil {
		tags = []domain.TagCount{}
	}
	writeJSON(w, http.StatusOK, tags)
}
