package repository

import (
	"context"
	"errors"
	"fmt"

	"mediareview/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, titleID, reviewID int64) error
	GetByID(ctx context.Context, titleID, reviewID int64) (*models.Review, error)
	GetByAuthorAndTitle(ctx context.Context, authorID, titleID int64) (*models.Review, error)
	ListByTitle(ctx context.Context, titleID int64, page Page) ([]models.Review, int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create inserts a review. A second review by the same author on the same
// title is rejected by uq_reviews_author_title.
func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Title").Create(review).Error; err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return r.db.WithContext(ctx).Preload("Author").First(review, review.ID).Error
}

// Update writes text and score only; title, author and pub_date are fixed.
func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Model(review).
		Select("text", "score").
		Updates(map[string]any{"text": review.Text, "score": review.Score}).Error
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// Delete removes the review and its comments.
func (r *reviewRepository) Delete(ctx context.Context, titleID, reviewID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", reviewID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete review comments: %w", err)
		}
		result := tx.Where("id = ? AND title_id = ?", reviewID, titleID).Delete(&models.Review{})
		if result.Error != nil {
			return fmt.Errorf("delete review: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetByID retrieves a review of the given title.
func (r *reviewRepository) GetByID(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("id = ? AND title_id = ?", reviewID, titleID).
		Preload("Author").
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetByAuthorAndTitle returns (nil, nil) when the author has not reviewed
// the title yet.
func (r *reviewRepository) GetByAuthorAndTitle(ctx context.Context, authorID, titleID int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("author_id = ? AND title_id = ?", authorID, titleID).
		First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &review, nil
}

// ListByTitle retrieves one page of a title's reviews, oldest first.
func (r *reviewRepository) ListByTitle(ctx context.Context, titleID int64, page Page) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", titleID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	err := r.db.WithContext(ctx).
		Where("title_id = ?", titleID).
		Preload("Author").
		Order("pub_date ASC").
		Order("id ASC").
		Scopes(paginate(page)).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, total, nil
}
