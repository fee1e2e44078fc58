package handler

import (
	"net/http"
	"strconv"

	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/repository"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type TitleHandler struct {
	svc    service.TitleService
	paging Paging
}

func NewTitleHandler(svc service.TitleService, paging Paging) *TitleHandler {
	return &TitleHandler{svc: svc, paging: paging}
}

func (h *TitleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handle(rg, http.MethodGet, "", h.List)
	handle(rg, http.MethodPost, "", h.Create)
	handle(rg, http.MethodGet, "/:title_id", h.Get)
	handle(rg, http.MethodPatch, "/:title_id", h.Update)
	handle(rg, http.MethodDelete, "/:title_id", h.Delete)
}

// List filters by ?name= (substring), ?category= and ?genre= (slugs) and
// ?year= (exact).
// GET /api/v1/titles/?genre=drama&year=2001
func (h *TitleHandler) List(c *gin.Context) {
	q, err := h.paging.query(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter := repository.TitleFilter{
		Name:     c.Query("name"),
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, service.NewValidationError(map[string][]string{"year": {"Enter a number."}}))
			return
		}
		filter.Year = &year
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	titles, total, err := h.svc.List(ctx, middleware.ActorFrom(c), service.TitleQuery{ListQuery: q, Filter: filter})
	if err != nil {
		respondError(c, err)
		return
	}
	writePage(c, titles, total, q)
}

func (h *TitleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.svc.Get(ctx, middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

func (h *TitleHandler) Create(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.svc.Create(ctx, middleware.ActorFrom(c), body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, title)
}

func (h *TitleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.svc.Update(ctx, middleware.ActorFrom(c), id, body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

func (h *TitleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
