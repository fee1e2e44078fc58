package service

import (
	"context"
	"fmt"

	"mediareview/internal/metrics"
	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"
	"mediareview/internal/validation"
)

const msgDuplicateReview = "You have already reviewed this title."

type ReviewService interface {
	List(ctx context.Context, actor permission.Actor, titleID int64, q dto.ListQuery) ([]dto.ReviewResponse, int64, error)
	Get(ctx context.Context, actor permission.Actor, titleID, reviewID int64) (*dto.ReviewResponse, error)
	Create(ctx context.Context, actor permission.Actor, titleID int64, decode dto.Decoder) (*dto.ReviewResponse, error)
	Update(ctx context.Context, actor permission.Actor, titleID, reviewID int64, decode dto.Decoder) (*dto.ReviewResponse, error)
	Delete(ctx context.Context, actor permission.Actor, titleID, reviewID int64) error
}

type reviewService struct {
	reviews repository.ReviewRepository
	titles  repository.TitleRepository
	perms   *permission.Evaluator
}

func NewReviewService(reviews repository.ReviewRepository, titles repository.TitleRepository, perms *permission.Evaluator) ReviewService {
	return &reviewService{reviews: reviews, titles: titles, perms: perms}
}

// requireTitle answers 404 for a missing title before any permission check.
func requireTitle(ctx context.Context, titles repository.TitleRepository, titleID int64) error {
	ok, err := titles.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("title")
	}
	return nil
}

func (s *reviewService) find(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	if err := requireTitle(ctx, s.titles, titleID); err != nil {
		return nil, err
	}
	review, err := s.reviews.GetByID(ctx, titleID, reviewID)
	if err != nil {
		return nil, lookup(err, "review")
	}
	return review, nil
}

// List returns a title's reviews, oldest first
func (s *reviewService) List(ctx context.Context, actor permission.Actor, titleID int64, q dto.ListQuery) ([]dto.ReviewResponse, int64, error) {
	if err := requireTitle(ctx, s.titles, titleID); err != nil {
		return nil, 0, err
	}
	if err := authorize(s.perms, actor, permission.KindReview, permission.ActionList, nil); err != nil {
		return nil, 0, err
	}

	reviews, total, err := s.reviews.ListByTitle(ctx, titleID, listPage(q))
	if err != nil {
		return nil, 0, err
	}
	return dto.Map(reviews, dto.FromModelToReviewResponse), total, nil
}

func (s *reviewService) Get(ctx context.Context, actor permission.Actor, titleID, reviewID int64) (*dto.ReviewResponse, error) {
	review, err := s.find(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.perms, actor, permission.KindReview, permission.ActionRetrieve, &review.AuthorID); err != nil {
		return nil, err
	}
	resp := dto.FromModelToReviewResponse(review)
	return &resp, nil
}

// Create posts the actor's review of a title. The lookup is a fast path;
// uq_reviews_author_title decides under concurrent writers.
func (s *reviewService) Create(ctx context.Context, actor permission.Actor, titleID int64, decode dto.Decoder) (*dto.ReviewResponse, error) {
	if err := requireTitle(ctx, s.titles, titleID); err != nil {
		return nil, err
	}
	if err := authorize(s.perms, actor, permission.KindReview, permission.ActionCreate, nil); err != nil {
		return nil, err
	}

	var req dto.CreateReviewDTO
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	existing, err := s.reviews.GetByAuthorAndTitle(ctx, actor.ID, titleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fieldError(validation.NonFieldErrors, msgDuplicateReview)
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: actor.ID,
		Text:     req.Text,
		Score:    req.Score,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, uniqueViolation(err, validation.NonFieldErrors, msgDuplicateReview)
	}
	metrics.ReviewsCreated.Inc()

	resp := dto.FromModelToReviewResponse(review)
	return &resp, nil
}

// Update lets the author or a moderator change text and score
func (s *reviewService) Update(ctx context.Context, actor permission.Actor, titleID, reviewID int64, decode dto.Decoder) (*dto.ReviewResponse, error) {
	review, err := s.find(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.perms, actor, permission.KindReview, permission.ActionUpdate, &review.AuthorID); err != nil {
		return nil, err
	}

	var req dto.UpdateReviewDTO
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	req.ApplyTo(review)
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review %d: %w", reviewID, err)
	}

	resp := dto.FromModelToReviewResponse(review)
	return &resp, nil
}

// Delete removes the review and its comments
func (s *reviewService) Delete(ctx context.Context, actor permission.Actor, titleID, reviewID int64) error {
	review, err := s.find(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := authorize(s.perms, actor, permission.KindReview, permission.ActionDelete, &review.AuthorID); err != nil {
		return err
	}
	return lookup(s.reviews.Delete(ctx, titleID, reviewID), "review")
}
