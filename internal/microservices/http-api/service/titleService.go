package service

import (
	"context"
	"errors"
	"fmt"

	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

// TitleQuery is a list query with the title filters.
type TitleQuery struct {
	dto.ListQuery
	Filter repository.TitleFilter
}

type TitleService interface {
	List(ctx context.Context, actor permission.Actor, q TitleQuery) ([]dto.TitleResponse, int64, error)
	Get(ctx context.Context, actor permission.Actor, id int64) (*dto.TitleResponse, error)
	Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.TitleResponse, error)
	Update(ctx context.Context, actor permission.Actor, id int64, decode dto.Decoder) (*dto.TitleResponse, error)
	Delete(ctx context.Context, actor permission.Actor, id int64) error
}

type titleService struct {
	titles     repository.TitleRepository
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	perms      *permission.Evaluator
}

func NewTitleService(
	titles repository.TitleRepository,
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
	perms *permission.Evaluator,
) TitleService {
	return &titleService{titles: titles, categories: categories, genres: genres, perms: perms}
}

func toTitleResponse(t *models.Title) dto.TitleResponse {
	return dto.FromModelToTitleResponse(t, RoundRating(t.Rating))
}

func (s *titleService) List(ctx context.Context, actor permission.Actor, q TitleQuery) ([]dto.TitleResponse, int64, error) {
	if err := authorize(s.perms, actor, permission.KindTitle, permission.ActionList, nil); err != nil {
		return nil, 0, err
	}
	list, total, err := s.titles.List(ctx, q.Filter, listPage(q.ListQuery))
	if err != nil {
		return nil, 0, err
	}
	return dto.Map(list, toTitleResponse), total, nil
}

func (s *titleService) Get(ctx context.Context, actor permission.Actor, id int64) (*dto.TitleResponse, error) {
	if err := authorize(s.perms, actor, permission.KindTitle, permission.ActionRetrieve, nil); err != nil {
		return nil, err
	}
	return s.read(ctx, id)
}

// Create accepts slug references and answers with the expanded read shape.
func (s *titleService) Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.TitleResponse, error) {
	if err := authorize(s.perms, actor, permission.KindTitle, permission.ActionCreate, nil); err != nil {
		return nil, err
	}

	var req dto.TitleCreateRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	t := models.Title{Name: req.Name, Year: req.Year, Description: req.Description}
	if err := s.resolveRefs(ctx, &t, &req.Category, &req.Genre); err != nil {
		return nil, err
	}
	if err := s.titles.Create(ctx, &t); err != nil {
		return nil, err
	}
	return s.read(ctx, t.ID)
}

func (s *titleService) Update(ctx context.Context, actor permission.Actor, id int64, decode dto.Decoder) (*dto.TitleResponse, error) {
	if err := authorize(s.perms, actor, permission.KindTitle, permission.ActionUpdate, nil); err != nil {
		return nil, err
	}
	t, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "title")
	}

	var req dto.TitleUpdateRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	req.ApplyTo(t)
	if err := s.resolveRefs(ctx, t, req.Category, req.Genre); err != nil {
		return nil, err
	}
	if err := s.titles.Update(ctx, t, req.Genre != nil); err != nil {
		return nil, err
	}
	return s.read(ctx, id)
}

// Delete removes the title with its reviews and their comments.
func (s *titleService) Delete(ctx context.Context, actor permission.Actor, id int64) error {
	if err := authorize(s.perms, actor, permission.KindTitle, permission.ActionDelete, nil); err != nil {
		return err
	}
	return lookup(s.titles.Delete(ctx, id), "title")
}

func (s *titleService) read(ctx context.Context, id int64) (*dto.TitleResponse, error) {
	t, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "title")
	}
	resp := toTitleResponse(t)
	return &resp, nil
}

// resolveRefs turns category and genre slugs into rows on t. Nil arguments
// leave the current value alone. Unknown slugs are validation errors.
func (s *titleService) resolveRefs(ctx context.Context, t *models.Title, category *string, genres *[]string) error {
	fields := map[string][]string{}

	if category != nil {
		c, err := s.categories.GetBySlug(ctx, *category)
		switch {
		case err == nil:
			t.CategoryID = &c.ID
			t.Category = c
		case errors.Is(err, gorm.ErrRecordNotFound):
			fields["category"] = []string{fmt.Sprintf("Object with slug=%s does not exist.", *category)}
		default:
			return err
		}
	}

	if genres != nil {
		found, err := s.genres.GetBySlugs(ctx, *genres)
		if err != nil {
			return err
		}
		bySlug := make(map[string]models.Genre, len(found))
		for _, g := range found {
			bySlug[g.Slug] = g
		}
		t.Genres = t.Genres[:0:0]
		for _, slug := range *genres {
			g, ok := bySlug[slug]
			if !ok {
				fields["genre"] = append(fields["genre"], fmt.Sprintf("Object with slug=%s does not exist.", slug))
				continue
			}
			t.Genres = append(t.Genres, g)
		}
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}
