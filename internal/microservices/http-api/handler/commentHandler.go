package handler

import (
	"net/http"

	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
	paging         Paging
}

func NewCommentHandler(commentService service.CommentService, paging Paging) *CommentHandler {
	return &CommentHandler{commentService: commentService, paging: paging}
}

// RegisterRoutes mounts under /titles/:title_id/reviews/:review_id/comments.
func (h *CommentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handle(rg, http.MethodGet, "", h.List)
	handle(rg, http.MethodPost, "", h.Create)
	handle(rg, http.MethodGet, "/:comment_id", h.Get)
	handle(rg, http.MethodPatch, "/:comment_id", h.Update)
	handle(rg, http.MethodDelete, "/:comment_id", h.Delete)
}

// path extracts the title and review ids; ok is false once a 404 was
// written.
func (h *CommentHandler) path(c *gin.Context) (titleID, reviewID int64, ok bool) {
	if titleID, ok = parseID(c, "title_id"); !ok {
		return
	}
	reviewID, ok = parseID(c, "review_id")
	return
}

// List returns the review's comments, oldest first
// GET /api/v1/titles/:title_id/reviews/:review_id/comments/
func (h *CommentHandler) List(c *gin.Context) {
	titleID, reviewID, ok := h.path(c)
	if !ok {
		return
	}
	q, err := h.paging.query(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comments, total, err := h.commentService.List(ctx, middleware.ActorFrom(c), titleID, reviewID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	writePage(c, comments, total, q)
}

func (h *CommentHandler) Get(c *gin.Context) {
	titleID, reviewID, ok := h.path(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Get(ctx, middleware.ActorFrom(c), titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Create comments on a review
// POST /api/v1/titles/:title_id/reviews/:review_id/comments/
func (h *CommentHandler) Create(c *gin.Context) {
	titleID, reviewID, ok := h.path(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Create(ctx, middleware.ActorFrom(c), titleID, reviewID, body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Update edits a comment (author, moderator or admin)
func (h *CommentHandler) Update(c *gin.Context) {
	titleID, reviewID, ok := h.path(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Update(ctx, middleware.ActorFrom(c), titleID, reviewID, commentID, body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	titleID, reviewID, ok := h.path(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.commentService.Delete(ctx, middleware.ActorFrom(c), titleID, reviewID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
