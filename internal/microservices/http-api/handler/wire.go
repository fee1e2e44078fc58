package handler

import (
	"mediareview/internal/config"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"
	"mediareview/internal/microservices/http-api/service"
	"mediareview/internal/notify"

	"gorm.io/gorm"
)

// NewServices builds the service layer over db.
func NewServices(db *gorm.DB, perms *permission.Evaluator, notifier notify.Notifier, cfg *config.Config) Services {
	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepo(db)
	genres := repository.NewGenreRepo(db)
	titles := repository.NewTitleRepo(db)
	reviews := repository.NewReviewRepository(db)
	comments := repository.NewCommentRepository(db)

	return Services{
		Auth:       service.NewAuthService(users, notifier, cfg),
		Users:      service.NewUserService(users, perms),
		Categories: service.NewCategoryService(categories, perms),
		Genres:     service.NewGenreService(genres, perms),
		Titles:     service.NewTitleService(titles, categories, genres, perms),
		Reviews:    service.NewReviewService(reviews, titles, perms),
		Comments:   service.NewCommentService(comments, reviews, titles, perms),
	}
}
