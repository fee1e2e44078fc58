package service

import (
	"context"

	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"
)

type GenreService interface {
	List(ctx context.Context, actor permission.Actor, q dto.ListQuery) ([]dto.GenreResponse, int64, error)
	Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.GenreResponse, error)
	Delete(ctx context.Context, actor permission.Actor, slug string) error
}

type genreService struct {
	repo  repository.GenreRepository
	perms *permission.Evaluator
}

func NewGenreService(repo repository.GenreRepository, perms *permission.Evaluator) GenreService {
	return &genreService{repo: repo, perms: perms}
}

func (s *genreService) List(ctx context.Context, actor permission.Actor, q dto.ListQuery) ([]dto.GenreResponse, int64, error) {
	if err := authorize(s.perms, actor, permission.KindGenre, permission.ActionList, nil); err != nil {
		return nil, 0, err
	}
	list, total, err := s.repo.List(ctx, q.Search, listPage(q))
	if err != nil {
		return nil, 0, err
	}
	return dto.Map(list, dto.FromModelToGenreResponse), total, nil
}

func (s *genreService) Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.GenreResponse, error) {
	if err := authorize(s.perms, actor, permission.KindGenre, permission.ActionCreate, nil); err != nil {
		return nil, err
	}

	var req dto.GenreRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	g := req.ToModel()
	if err := s.repo.Create(ctx, &g); err != nil {
		return nil, uniqueViolation(err, "slug", msgSlugTaken)
	}
	resp := dto.FromModelToGenreResponse(&g)
	return &resp, nil
}

// Delete removes the genre from every title that carried it.
func (s *genreService) Delete(ctx context.Context, actor permission.Actor, slug string) error {
	if err := authorize(s.perms, actor, permission.KindGenre, permission.ActionDelete, nil); err != nil {
		return err
	}
	return lookup(s.repo.DeleteBySlug(ctx, slug), "genre")
}
