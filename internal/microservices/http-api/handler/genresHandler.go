package handler

import (
	"net/http"

	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type GenreHandler struct {
	svc    service.GenreService
	paging Paging
}

func NewGenreHandler(svc service.GenreService, paging Paging) *GenreHandler {
	return &GenreHandler{svc: svc, paging: paging}
}

func (h *GenreHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handle(rg, http.MethodGet, "", h.List)
	handle(rg, http.MethodPost, "", h.Create)
	handle(rg, http.MethodDelete, "/:slug", h.Delete)
}

func (h *GenreHandler) List(c *gin.Context) {
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

func (h *GenreHandler) Create(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	genre, err := h.svc.Create(ctx, middleware.ActorFrom(c), body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, genre)
}

func (h *GenreHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, middleware.ActorFrom(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
