package handler

import (
	"fmt"
	"net/http"
	"time"

	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Services bundles what the router dispatches to.
type Services struct {
	Auth       service.AuthService
	Users      service.UserService
	Categories service.CategoryService
	Genres     service.GenreService
	Titles     service.TitleService
	Reviews    service.ReviewService
	Comments   service.CommentService
}

// RouterConfig carries the transport settings.
type RouterConfig struct {
	Paging      Paging
	CORSOrigins []string
	// AuthLimiter throttles /auth; nil disables throttling.
	AuthLimiter middleware.Limiter
	Metrics     bool
	// DB is pinged by /health when set.
	DB *gorm.DB
}

// handle registers path with and without the trailing slash.
func handle(rg *gin.RouterGroup, method, path string, handlers ...gin.HandlerFunc) {
	rg.Handle(method, path, handlers...)
	rg.Handle(method, path+"/", handlers...)
}

// freeText lists the fields whose markup is stripped on write.
var freeText = []string{"text", "description", "bio", "first_name", "last_name", "name"}

func NewRouter(svc Services, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestLogger(), middleware.Recovery())
	if cfg.Metrics {
		r.Use(middleware.Metrics())
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.NoMethod(func(c *gin.Context) {
		detail(c, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", c.Request.Method))
	})
	r.NoRoute(func(c *gin.Context) {
		detail(c, http.StatusNotFound, "Not found.")
	})

	r.GET("/health", health(cfg.DB))
	if cfg.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1", middleware.SanitizeInput(freeText...), middleware.Authenticate(svc.Auth))

	authGroup := api.Group("/auth")
	if cfg.AuthLimiter != nil {
		authGroup.Use(middleware.RateLimit(cfg.AuthLimiter))
	}
	NewAuthHandler(svc.Auth).RegisterRoutes(authGroup)

	NewUserHandler(svc.Users, cfg.Paging).RegisterRoutes(api.Group("/users"))
	NewCategoryHandler(svc.Categories, cfg.Paging).RegisterRoutes(api.Group("/categories"))
	NewGenreHandler(svc.Genres, cfg.Paging).RegisterRoutes(api.Group("/genres"))
	NewTitleHandler(svc.Titles, cfg.Paging).RegisterRoutes(api.Group("/titles"))
	NewReviewHandler(svc.Reviews, cfg.Paging).RegisterRoutes(api.Group("/titles/:title_id/reviews"))
	NewCommentHandler(svc.Comments, cfg.Paging).RegisterRoutes(api.Group("/titles/:title_id/reviews/:review_id/comments"))

	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
