package service

import (
	"context"

	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"
)

type CommentService interface {
	List(ctx context.Context, actor permission.Actor, titleID, reviewID int64, q dto.ListQuery) ([]dto.CommentResponse, int64, error)
	Get(ctx context.Context, actor permission.Actor, titleID, reviewID, commentID int64) (*dto.CommentResponse, error)
	Create(ctx context.Context, actor permission.Actor, titleID, reviewID int64, decode dto.Decoder) (*dto.CommentResponse, error)
	Update(ctx context.Context, actor permission.Actor, titleID, reviewID, commentID int64, decode dto.Decoder) (*dto.CommentResponse, error)
	Delete(ctx context.Context, actor permission.Actor, titleID, reviewID, commentID int64) error
}

type commentService struct {
	comments repository.CommentRepository
	reviews  repository.ReviewRepository
	titles   repository.TitleRepository
	perms    *permission.Evaluator
}

func NewCommentService(
	comments repository.CommentRepository,
	reviews repository.ReviewRepository,
	titles repository.TitleRepository,
	perms *permission.Evaluator,
) CommentService {
	return &commentService{comments: comments, reviews: reviews, titles: titles, perms: perms}
}

// requireReview checks the title, then that the review belongs to it.
func (s *commentService) requireReview(ctx context.Context, titleID, reviewID int64) error {
	if err := requireTitle(ctx, s.titles, titleID); err != nil {
		return err
	}
	if _, err := s.reviews.GetByID(ctx, titleID, reviewID); err != nil {
		return lookup(err, "review")
	}
	return nil
}

func (s *commentService) find(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error) {
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, reviewID, commentID)
	if err != nil {
		return nil, lookup(err, "comment")
	}
	return comment, nil
}

func (s *commentService) List(ctx context.Context, actor permission.Actor, titleID, reviewID int64, q dto.ListQuery) ([]dto.CommentResponse, int64, error) {
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	if err := authorize(s.perms, actor, permission.KindComment, permission.ActionList, nil); err != nil {
		return nil, 0, err
	}

	comments, total, err := s.comments.ListByReview(ctx, reviewID, listPage(q))
	if err != nil {
		return nil, 0, err
	}
	return dto.Map(comments, dto.FromModelToCommentResponse), total, nil
}

func (s *commentService) Get(ctx context.Context, actor permission.Actor, titleID, reviewID, commentID int64) (*dto.CommentResponse, error) {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.perms, actor, permission.KindComment, permission.ActionRetrieve, &comment.AuthorID); err != nil {
		return nil, err
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

// Create adds a comment by the actor to a review
func (s *commentService) Create(ctx context.Context, actor permission.Actor, titleID, reviewID int64, decode dto.Decoder) (*dto.CommentResponse, error) {
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	if err := authorize(s.perms, actor, permission.KindComment, permission.ActionCreate, nil); err != nil {
		return nil, err
	}

	var req dto.CreateCommentDTO
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	comment := &models.Comment{ReviewID: reviewID, AuthorID: actor.ID, Text: req.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

// Update lets the author or a moderator rewrite the text
func (s *commentService) Update(ctx context.Context, actor permission.Actor, titleID, reviewID, commentID int64, decode dto.Decoder) (*dto.CommentResponse, error) {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.perms, actor, permission.KindComment, permission.ActionUpdate, &comment.AuthorID); err != nil {
		return nil, err
	}

	var req dto.UpdateCommentDTO
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}
	if req.Text != nil {
		comment.Text = *req.Text
		if err := s.comments.Update(ctx, comment); err != nil {
			return nil, err
		}
	}

	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

func (s *commentService) Delete(ctx context.Context, actor permission.Actor, titleID, reviewID, commentID int64) error {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := authorize(s.perms, actor, permission.KindComment, permission.ActionDelete, &comment.AuthorID); err != nil {
		return err
	}
	return lookup(s.comments.Delete(ctx, reviewID, commentID), "comment")
}
