package handler

import (
	"net/http"

	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc    service.UserService
	paging Paging
}

func NewUserHandler(svc service.UserService, paging Paging) *UserHandler {
	return &UserHandler{svc: svc, paging: paging}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handle(rg, http.MethodGet, "", h.List)
	handle(rg, http.MethodPost, "", h.Create)

	// the static /me segment wins over the username wildcard
	handle(rg, http.MethodGet, "/me", h.Me)
	handle(rg, http.MethodPatch, "/me", h.UpdateMe)

	handle(rg, http.MethodGet, "/:username", h.Get)
	handle(rg, http.MethodPatch, "/:username", h.Update)
	handle(rg, http.MethodDelete, "/:username", h.Delete)
}

// List supports ?search= on the exact username.
func (h *UserHandler) List(c *gin.Context) {
	q, err := h.paging.query(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, total, err := h.svc.List(ctx, middleware.ActorFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	writePage(c, users, total, q)
}

func (h *UserHandler) Create(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.svc.Create(ctx, middleware.ActorFrom(c), body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Get(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.svc.Get(ctx, middleware.ActorFrom(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.svc.Update(ctx, middleware.ActorFrom(c), c.Param("username"), body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, middleware.ActorFrom(c), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Me(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.svc.Me(ctx, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe edits the caller's own profile; role stays unchanged.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.svc.UpdateMe(ctx, middleware.ActorFrom(c), body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
