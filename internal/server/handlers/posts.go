package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
	"github.com/iudanet/custadmin/internal/validation"
	"github.com/iudanet/custadmin/pkg/api"
)

// PostHandler обрабатывает посты. Изменять пост может только автор.
type PostHandler struct {
	responder
	posts storage.PostStorage
}

// NewPostHandler создает handler для постов
func NewPostHandler(logger *slog.Logger, posts storage.PostStorage) *PostHandler {
	return &PostHandler{responder: responder{logger: logger}, posts: posts}
}

// List обрабатывает GET /api/v1/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	posts, err := h.posts.ListPosts(r.Context(), limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list posts", slog.Any("error", err))
		h.sendError(w, "Failed to fetch posts", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	h.sendJSON(w, posts, http.StatusOK)
}

// Get обрабатывает GET /api/v1/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, ok := h.load(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, post, http.StatusOK)
}

// Create обрабатывает POST /api/v1/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validation.Post(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	post := &models.Post{
		ID:        uuid.New().String(),
		UserID:    caller.UserID,
		Title:     req.Title,
		Content:   req.Content,
		Status:    models.PostDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Status != "" {
		post.Status = models.PostStatus(req.Status)
	}

	if err := h.posts.CreatePost(r.Context(), post); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create post", slog.Any("error", err))
		h.sendError(w, "Failed to create post", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, post, http.StatusCreated)
}

// Update обрабатывает PUT /api/v1/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.PostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validation.Post(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	post, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	post.Title = req.Title
	post.Content = req.Content
	if req.Status != "" {
		post.Status = models.PostStatus(req.Status)
	}
	post.UpdatedAt = time.Now().UTC()

	if err := h.posts.UpdatePost(r.Context(), post); err != nil {
		h.sendStorageError(w, r, "failed to update post", err)
		return
	}

	h.sendJSON(w, post, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := h.posts.DeletePost(r.Context(), post.ID); err != nil {
		h.sendStorageError(w, r, "failed to delete post", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) load(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	post, err := h.posts.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.sendStorageError(w, r, "failed to get post", err)
		return nil, false
	}
	return post, true
}

// loadOwned загружает пост и проверяет, что вызывающий его автор
func (h *PostHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	post, ok := h.load(w, r)
	if !ok {
		return nil, false
	}

	if post.UserID != caller.UserID {
		h.sendError(w, "Forbidden: you can only modify your own posts", http.StatusForbidden)
		return nil, false
	}
	return post, true
}

func (h *PostHandler) sendStorageError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, storage.ErrPostNotFound) {
		h.sendError(w, "Post not found", http.StatusNotFound)
		return
	}
	h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	h.sendError(w, "Internal server error", http.StatusInternalServerError)
}
