package handler

import (
	"net/http"

	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	svc    service.ReviewService
	paging Paging
}

func NewReviewHandler(svc service.ReviewService, paging Paging) *ReviewHandler {
	return &ReviewHandler{svc: svc, paging: paging}
}

// RegisterRoutes mounts under /titles/:title_id/reviews.
func (h *ReviewHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handle(rg, http.MethodGet, "", h.List)
	handle(rg, http.MethodPost, "", h.Create)
	handle(rg, http.MethodGet, "/:review_id", h.Get)
	handle(rg, http.MethodPatch, "/:review_id", h.Update)
	handle(rg, http.MethodDelete, "/:review_id", h.Delete)
}

func (h *ReviewHandler) List(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
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

	reviews, total, err := h.svc.List(ctx, middleware.ActorFrom(c), titleID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	writePage(c, reviews, total, q)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.svc.Get(ctx, middleware.ActorFrom(c), titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// Create posts the caller's review; one per title.
func (h *ReviewHandler) Create(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.svc.Create(ctx, middleware.ActorFrom(c), titleID, body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) Update(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.svc.Update(ctx, middleware.ActorFrom(c), titleID, reviewID, body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, middleware.ActorFrom(c), titleID, reviewID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
