package handler

import (
	"net/http"

	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handle(rg, http.MethodPost, "/signup", h.Signup)
	handle(rg, http.MethodPost, "/token", h.Token)
}

// Signup registers the user (or finds the identical one) and mails a
// confirmation code.
// POST /api/v1/auth/signup/
func (h *AuthHandler) Signup(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.authService.Signup(ctx, body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Token exchanges username and confirmation code for an access token.
// POST /api/v1/auth/token/
func (h *AuthHandler) Token(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.authService.Token(ctx, body(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
