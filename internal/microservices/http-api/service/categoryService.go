package service

import (
	"context"

	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"
)

const msgSlugTaken = "A resource with this slug already exists."

type CategoryService interface {
	List(ctx context.Context, actor permission.Actor, q dto.ListQuery) ([]dto.CategoryResponse, int64, error)
	Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, actor permission.Actor, slug string) error
}

type categoryService struct {
	repo  repository.CategoryRepository
	perms *permission.Evaluator
}

func NewCategoryService(repo repository.CategoryRepository, perms *permission.Evaluator) CategoryService {
	return &categoryService{repo: repo, perms: perms}
}

func (s *categoryService) List(ctx context.Context, actor permission.Actor, q dto.ListQuery) ([]dto.CategoryResponse, int64, error) {
	if err := authorize(s.perms, actor, permission.KindCategory, permission.ActionList, nil); err != nil {
		return nil, 0, err
	}
	list, total, err := s.repo.List(ctx, q.Search, listPage(q))
	if err != nil {
		return nil, 0, err
	}
	return dto.Map(list, dto.FromModelToCategoryResponse), total, nil
}

func (s *categoryService) Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.CategoryResponse, error) {
	if err := authorize(s.perms, actor, permission.KindCategory, permission.ActionCreate, nil); err != nil {
		return nil, err
	}

	var req dto.CategoryRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	c := req.ToModel()
	if err := s.repo.Create(ctx, &c); err != nil {
		return nil, uniqueViolation(err, "slug", msgSlugTaken)
	}
	resp := dto.FromModelToCategoryResponse(&c)
	return &resp, nil
}

// Delete removes the category; its titles remain with no category.
func (s *categoryService) Delete(ctx context.Context, actor permission.Actor, slug string) error {
	if err := authorize(s.perms, actor, permission.KindCategory, permission.ActionDelete, nil); err != nil {
		return err
	}
	return lookup(s.repo.DeleteBySlug(ctx, slug), "category")
}
