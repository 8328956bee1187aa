package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/scribehq/scribe-be/internal/services"
	"github.com/scribehq/scribe-be/internal/upload"
)

// maxFormMemory bounds how much of a multipart body is held in memory
// while parsing; larger parts spill to temp files.
const maxFormMemory = 32 << 20

// PostHandler handles HTTP requests for posts.
type PostHandler struct {
	service services.PostServiceProvider
	uploads *upload.Store
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service services.PostServiceProvider, uploads *upload.Store) *PostHandler {
	return &PostHandler{service: service, uploads: uploads}
}

// List handles GET /api/posts with pagination, category filter and search.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := services.PostQuery{
		Page:     intParam(r, "page", services.DefaultPage),
		Limit:    intParam(r, "limit", services.DefaultLimit),
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("q"),
	}

	posts, err := h.service.ListPosts(q)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list posts")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Get handles GET /api/posts/{id}.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := h.service.GetPost(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Create handles POST /api/posts: a multipart form with the post fields
// and an optional featured image. Upload constraints are checked before
// anything is persisted; if the post write fails after a file was
// accepted, the orphaned file is removed best-effort.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	imagePath, err := h.uploads.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	in := services.PostInput{
		Title:         r.FormValue("title"),
		Content:       r.FormValue("content"),
		Excerpt:       r.FormValue("excerpt"),
		Category:      r.FormValue("category"),
		Author:        r.FormValue("author"),
		Tags:          parseTags(r.FormValue("tags")),
		FeaturedImage: imagePath,
	}

	post, err := h.service.CreatePost(in)
	if err != nil {
		if imagePath != "" {
			h.uploads.Remove(imagePath)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// Update handles PUT /api/posts/{id}: any subset of the post fields may
// be supplied and absent fields are left untouched.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	imagePath, err := h.uploads.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	up := services.PostUpdate{
		Title:    formValue(r, "title"),
		Content:  formValue(r, "content"),
		Excerpt:  formValue(r, "excerpt"),
		Category: formValue(r, "category"),
		Author:   formValue(r, "author"),
	}
	if raw := formValue(r, "tags"); raw != nil {
		tags := parseTags(*raw)
		up.Tags = &tags
	}
	if imagePath != "" {
		up.FeaturedImage = &imagePath
	}

	post, err := h.service.UpdatePost(id, up)
	if err != nil {
		if imagePath != "" {
			h.uploads.Remove(imagePath)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /api/posts/{id}. Deleting an absent ID still
// reports success.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeletePost(id); err != nil {
		log.Error().Err(err).Str("post_id", id).Msg("Failed to delete post")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

// intParam reads a positive integer query parameter, falling back when it
// is absent or not numeric.
func intParam(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// formValue reports a multipart form field and whether it was present,
// so partial updates can distinguish "absent" from "empty".
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// parseTags splits a comma-separated tag field, preserving order.
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
