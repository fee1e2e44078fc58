package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mediareview/internal/logging"
	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 5 * time.Second

var errInvalidPage = errors.New("invalid page")

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// body hands the request payload to a service, which decides when to read it.
func body(c *gin.Context) dto.Decoder {
	return c.ShouldBindJSON
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// respondError maps service errors onto status codes.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrUnauthenticated):
		detail(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
	case errors.Is(err, service.ErrInvalidToken):
		detail(c, http.StatusUnauthorized, "Given token not valid for any token type.")
	case errors.Is(err, service.ErrForbidden):
		detail(c, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, errInvalidPage):
		detail(c, http.StatusNotFound, "Invalid page.")
	case errors.Is(err, service.ErrNotFound):
		detail(c, http.StatusNotFound, "Not found.")
	default:
		_ = c.Error(err)
		logging.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		detail(c, http.StatusInternalServerError, "internal server error")
	}
}

// Paging holds the page size limits applied to list endpoints.
type Paging struct {
	DefaultSize int
	MaxSize     int
}

// query reads page, page_size and search. A page that is not a positive
// integer is an error; a bad page_size falls back to the default.
func (p Paging) query(c *gin.Context) (dto.ListQuery, error) {
	q := dto.ListQuery{Page: 1, PageSize: p.DefaultSize, Search: c.Query("search")}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, errInvalidPage
		}
		q.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			q.PageSize = min(size, p.MaxSize)
		}
	}
	return q, nil
}

// writePage answers with the list envelope. Pages past the end are 404 like
// any other invalid page.
func writePage[T any](c *gin.Context, results []T, total int64, q dto.ListQuery) {
	if q.Page > 1 && len(results) == 0 {
		respondError(c, errInvalidPage)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(results, total, q, absoluteURL(c)))
}

func absoluteURL(c *gin.Context) *url.URL {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	u := *c.Request.URL
	u.Scheme = scheme
	u.Host = c.Request.Host
	return &u
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		detail(c, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}
