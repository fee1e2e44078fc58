package handler

import (
	"net/http"

	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	svc    service.CategoryService
	paging Paging
}

func NewCategoryHandler(svc service.CategoryService, paging Paging) *CategoryHandler {
	return &CategoryHandler{svc: svc, paging: paging}
}

// RegisterRoutes exposes list, create and delete only; the detail route
// answers 405 to everything but DELETE.
func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handle(rg, http.MethodGet, "", h.List)
	handle(rg, http.MethodPost, "", h.Create)
	handle(rg, http.MethodDelete, "/:slug", h.Delete)
}

func (h *CategoryHandler) List(c *gin.Context) {
	q, err := h.paging.query(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, total, err := h.svc.List(ctx, middleware.ActorFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	writePage(c, list, total, q)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	category, err := h.svc.Create(ctx, middleware.ActorFrom(c), body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, middleware.ActorFrom(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
