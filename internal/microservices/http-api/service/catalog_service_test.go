package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"mediareview/database/dbtest"
	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"
	"mediareview/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db       *gorm.DB
	users    UserService
	cats     CategoryService
	genres   GenreService
	titles   TitleService
	reviews  ReviewService
	comments CommentService

	admin, mod, alice, bob permission.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.New(t)
	perms := permission.MustNewEvaluator()

	userRepo := repository.NewUserRepository(db)
	catRepo := repository.NewCategoryRepo(db)
	genreRepo := repository.NewGenreRepo(db)
	titleRepo := repository.NewTitleRepo(db)
	reviewRepo := repository.NewReviewRepository(db)

	e := &env{
		db:       db,
		users:    NewUserService(userRepo, perms),
		cats:     NewCategoryService(catRepo, perms),
		genres:   NewGenreService(genreRepo, perms),
		titles:   NewTitleService(titleRepo, catRepo, genreRepo, perms),
		reviews:  NewReviewService(reviewRepo, titleRepo, perms),
		comments: NewCommentService(repository.NewCommentRepository(db), reviewRepo, titleRepo, perms),
	}
	e.admin = e.seedUser(t, "root", models.RoleAdmin)
	e.mod = e.seedUser(t, "mod", models.RoleModerator)
	e.alice = e.seedUser(t, "alice", models.RoleUser)
	e.bob = e.seedUser(t, "bob", models.RoleUser)
	return e
}

func (e *env) seedUser(t *testing.T, name, role string) permission.Actor {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Role: role}
	require.NoError(t, e.db.Create(u).Error)
	return permission.FromUser(u)
}

func (e *env) seedCatalog(t *testing.T) *dto.TitleResponse {
	t.Helper()
	ctx := context.Background()
	_, err := e.cats.Create(ctx, e.admin, dto.Value(dto.CategoryRequest{Name: "Films", Slug: "films"}))
	require.NoError(t, err)
	_, err = e.genres.Create(ctx, e.admin, dto.Value(dto.GenreRequest{Name: "Drama", Slug: "drama"}))
	require.NoError(t, err)
	_, err = e.genres.Create(ctx, e.admin, dto.Value(dto.GenreRequest{Name: "Comedy", Slug: "comedy"}))
	require.NoError(t, err)

	title, err := e.titles.Create(ctx, e.admin, dto.Value(map[string]any{
		"name":     "Amelie",
		"year":     2001,
		"genre":    []string{"drama", "comedy"},
		"category": "films",
	}))
	require.NoError(t, err)
	return title
}

func review(score int) dto.Decoder {
	return dto.Value(map[string]any{"text": "thoughts", "score": score})
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestTitleService_CreateReturnsReadShape(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)

	assert.NotZero(t, title.ID)
	assert.Equal(t, "Amelie", title.Name)
	require.NotNil(t, title.Category)
	assert.Equal(t, dto.CategoryResponse{Name: "Films", Slug: "films"}, *title.Category)
	assert.Equal(t, []dto.GenreResponse{{Name: "Comedy", Slug: "comedy"}, {Name: "Drama", Slug: "drama"}}, title.Genre)
	assert.Nil(t, title.Rating)
}

func TestTitleService_Validation(t *testing.T) {
	e := newEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"unknown genre", map[string]any{"name": "X", "year": 2000, "genre": []string{"nope"}, "category": "films"}, "genre"},
		{"unknown category", map[string]any{"name": "X", "year": 2000, "genre": []string{}, "category": "nope"}, "category"},
		{"future year", map[string]any{"name": "X", "year": validation.CurrentYear() + 1, "genre": []string{}, "category": "films"}, "year"},
		{"non-numeric year", map[string]any{"name": "X", "year": "two thousand", "genre": []string{}, "category": "films"}, "year"},
		{"missing name", map[string]any{"year": 2000, "genre": []string{}, "category": "films"}, "name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.titles.Create(ctx, e.admin, dto.Value(tc.body))
			assert.Contains(t, fieldsOf(t, err), tc.field)
		})
	}

	var n int64
	require.NoError(t, e.db.Model(&models.Title{}).Count(&n).Error)
	assert.EqualValues(t, 1, n, "no partial writes")
}

func TestTitleService_Permissions(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()
	body := dto.Value(map[string]any{"name": "Renamed"})

	_, err := e.titles.Update(ctx, permission.Anonymous(), title.ID, body)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = e.titles.Update(ctx, e.alice, title.ID, body)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.titles.Update(ctx, e.mod, title.ID, body)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, e.titles.Delete(ctx, e.mod, title.ID), ErrForbidden)
	_, err = e.cats.Create(ctx, e.mod, dto.Value(dto.CategoryRequest{Name: "Books", Slug: "books"}))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, e.genres.Delete(ctx, e.alice, "drama"), ErrForbidden)

	got, err := e.titles.Get(ctx, permission.Anonymous(), title.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amelie", got.Name)
}

func TestTitleService_PartialUpdate(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	got, err := e.titles.Update(ctx, e.admin, title.ID, dto.Value(map[string]any{"description": "Paris", "genre": []string{"comedy"}}))
	require.NoError(t, err)
	assert.Equal(t, "Amelie", got.Name)
	assert.Equal(t, "Paris", got.Description)
	assert.Equal(t, []dto.GenreResponse{{Name: "Comedy", Slug: "comedy"}}, got.Genre)
	require.NotNil(t, got.Category)

	got, err = e.titles.Update(ctx, e.admin, title.ID, dto.Value(map[string]any{"year": 2002}))
	require.NoError(t, err)
	assert.Equal(t, 2002, got.Year)
	assert.Len(t, got.Genre, 1)

	_, err = e.titles.Update(ctx, e.admin, title.ID+99, dto.Value(map[string]any{"year": 2002}))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTitleService_RejectsExplicitNulls(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	for _, field := range []string{"category", "genre", "name", "year"} {
		t.Run(field, func(t *testing.T) {
			_, err := e.titles.Update(ctx, e.admin, title.ID, dto.Value(map[string]any{field: nil}))
			assert.Equal(t, map[string][]string{field: {"This field may not be null."}}, fieldsOf(t, err))
		})
	}

	got, err := e.titles.Get(ctx, e.admin, title.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "films", got.Category.Slug)
	assert.Len(t, got.Genre, 2)

	_, err = e.titles.Create(ctx, e.admin, dto.Value(map[string]any{
		"name": "Heat", "year": 1995, "genre": []string{"drama"}, "category": nil,
	}))
	assert.Equal(t, []string{"This field may not be null."}, fieldsOf(t, err)["category"])
}

func TestTitleService_ListFilters(t *testing.T) {
	e := newEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()
	for _, body := range []map[string]any{
		{"name": "The Matrix", "year": 1999, "genre": []string{}, "category": "films"},
		{"name": "Gladiator", "year": 2000, "genre": []string{"drama"}, "category": "films"},
		{"name": "Chocolat", "year": 2000, "genre": []string{}, "category": "films"},
	} {
		_, err := e.titles.Create(ctx, e.admin, dto.Value(body))
		require.NoError(t, err)
	}

	year := 2000
	list, total, err := e.titles.List(ctx, permission.Anonymous(), TitleQuery{
		ListQuery: dto.ListQuery{Page: 1, PageSize: 10},
		Filter:    repository.TitleFilter{Year: &year},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, ti := range list {
		assert.Equal(t, 2000, ti.Year)
	}

	list, _, err = e.titles.List(ctx, permission.Anonymous(), TitleQuery{
		ListQuery: dto.ListQuery{Page: 1, PageSize: 10},
		Filter:    repository.TitleFilter{Name: "MATRIX"},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "The Matrix", list[0].Name)
}

func TestCategoryService_DuplicateSlugAndDelete(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	_, err := e.cats.Create(ctx, e.admin, dto.Value(dto.CategoryRequest{Name: "Again", Slug: "films"}))
	assert.Equal(t, []string{msgSlugTaken}, fieldsOf(t, err)["slug"])

	_, err = e.cats.Create(ctx, e.admin, dto.Value(dto.CategoryRequest{Name: "Bad", Slug: "bad slug"}))
	assert.Contains(t, fieldsOf(t, err), "slug")

	require.NoError(t, e.cats.Delete(ctx, e.admin, "films"))
	got, err := e.titles.Get(ctx, permission.Anonymous(), title.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Category)

	assert.ErrorIs(t, e.cats.Delete(ctx, e.admin, "films"), ErrNotFound)

	list, total, err := e.cats.List(ctx, permission.Anonymous(), dto.ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestGenreService_DeleteShrinksTitleGenres(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	require.NoError(t, e.genres.Delete(ctx, e.admin, "drama"))

	got, err := e.titles.Get(ctx, permission.Anonymous(), title.ID)
	require.NoError(t, err)
	assert.Equal(t, []dto.GenreResponse{{Name: "Comedy", Slug: "comedy"}}, got.Genre)

	list, _, err := e.genres.List(ctx, permission.Anonymous(), dto.ListQuery{Page: 1, PageSize: 10, Search: "com"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestReviewService_Rating(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	first, err := e.reviews.Create(ctx, e.alice, title.ID, review(5))
	require.NoError(t, err)
	_, err = e.reviews.Create(ctx, e.bob, title.ID, review(3))
	require.NoError(t, err)
	_, err = e.reviews.Create(ctx, e.mod, title.ID, review(4))
	require.NoError(t, err)

	got, err := e.titles.Get(ctx, permission.Anonymous(), title.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)

	// [7,3,4] has mean 4.67
	_, err = e.reviews.Update(ctx, e.alice, title.ID, first.ID, dto.Value(map[string]any{"score": 7}))
	require.NoError(t, err)
	got, err = e.titles.Get(ctx, permission.Anonymous(), title.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, *got.Rating)

	list, _, err := e.titles.List(ctx, permission.Anonymous(), TitleQuery{ListQuery: dto.ListQuery{Page: 1, PageSize: 10}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, *list[0].Rating)
}

func TestReviewService_RatingTwoFourThree(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	for actor, score := range map[*permission.Actor]int{&e.alice: 2, &e.bob: 4, &e.mod: 3} {
		_, err := e.reviews.Create(ctx, *actor, title.ID, review(score))
		require.NoError(t, err)
	}
	got, err := e.titles.Get(ctx, permission.Anonymous(), title.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, *got.Rating)
}

func TestReviewService_OnePerAuthor(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	_, err := e.reviews.Create(ctx, e.alice, title.ID, review(8))
	require.NoError(t, err)

	_, err = e.reviews.Create(ctx, e.alice, title.ID, review(2))
	assert.Equal(t, []string{msgDuplicateReview}, fieldsOf(t, err)[validation.NonFieldErrors])
}

func TestReviewService_ConcurrentCreate(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.reviews.Create(context.Background(), e.bob, title.ID, review(i+1))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "duplicates must surface as validation errors")
	}
	assert.Equal(t, 1, created)
}

func TestReviewService_NotFoundBeforePermission(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()
	missing := title.ID + 100

	_, err := e.reviews.Create(ctx, permission.Anonymous(), missing, review(5))
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = e.reviews.List(ctx, permission.Anonymous(), missing, dto.ListQuery{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.reviews.Create(ctx, permission.Anonymous(), title.ID, review(5))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// permission is decided before the payload is looked at
	_, err = e.reviews.Create(ctx, permission.Anonymous(), title.ID, dto.Value(map[string]any{"score": 42}))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = e.reviews.Create(ctx, e.alice, title.ID, dto.Value(map[string]any{"text": "x", "score": 11}))
	assert.Contains(t, fieldsOf(t, err), "score")
}

func TestReviewService_OwnershipRules(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	r, err := e.reviews.Create(ctx, e.alice, title.ID, review(6))
	require.NoError(t, err)
	assert.Equal(t, "alice", r.Author)
	assert.WithinDuration(t, time.Now(), r.PubDate, time.Minute)

	_, err = e.reviews.Update(ctx, e.bob, title.ID, r.ID, review(1))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, e.reviews.Delete(ctx, e.bob, title.ID, r.ID), ErrForbidden)
	_, err = e.reviews.Update(ctx, permission.Anonymous(), title.ID, r.ID, review(1))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	updated, err := e.reviews.Update(ctx, e.mod, title.ID, r.ID, dto.Value(map[string]any{"text": "moderated"}))
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Text)
	assert.Equal(t, 6, updated.Score)
	assert.Equal(t, "alice", updated.Author)

	assert.NoError(t, e.reviews.Delete(ctx, e.admin, title.ID, r.ID))
	_, err = e.reviews.Get(ctx, permission.Anonymous(), title.ID, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentService(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	other, err := e.titles.Create(context.Background(), e.admin, dto.Value(map[string]any{
		"name": "Other", "year": 1990, "genre": []string{}, "category": "films",
	}))
	require.NoError(t, err)
	ctx := context.Background()

	r, err := e.reviews.Create(ctx, e.alice, title.ID, review(6))
	require.NoError(t, err)

	c, err := e.comments.Create(ctx, e.bob, title.ID, r.ID, dto.Value(map[string]any{"text": "nice"}))
	require.NoError(t, err)
	assert.Equal(t, "bob", c.Author)
	assert.Equal(t, r.ID, c.Review)

	// the review must belong to the title in the path
	_, err = e.comments.Create(ctx, e.bob, other.ID, r.ID, dto.Value(map[string]any{"text": "x"}))
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = e.comments.List(ctx, permission.Anonymous(), other.ID, r.ID, dto.ListQuery{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.comments.Create(ctx, e.bob, title.ID, r.ID, dto.Value(map[string]any{"text": ""}))
	assert.Contains(t, fieldsOf(t, err), "text")

	_, err = e.comments.Update(ctx, e.alice, title.ID, r.ID, c.ID, dto.Value(map[string]any{"text": "hijack"}))
	assert.ErrorIs(t, err, ErrForbidden)

	edited, err := e.comments.Update(ctx, e.bob, title.ID, r.ID, c.ID, dto.Value(map[string]any{"text": "nicer"}))
	require.NoError(t, err)
	assert.Equal(t, "nicer", edited.Text)

	require.NoError(t, e.comments.Delete(ctx, e.mod, title.ID, r.ID, c.ID))
	list, total, err := e.comments.List(ctx, permission.Anonymous(), title.ID, r.ID, dto.ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestTitleService_DeleteCascades(t *testing.T) {
	e := newEnv(t)
	title := e.seedCatalog(t)
	ctx := context.Background()

	r, err := e.reviews.Create(ctx, e.alice, title.ID, review(6))
	require.NoError(t, err)
	_, err = e.comments.Create(ctx, e.bob, title.ID, r.ID, dto.Value(map[string]any{"text": "nice"}))
	require.NoError(t, err)

	require.NoError(t, e.titles.Delete(ctx, e.admin, title.ID))

	_, _, err = e.reviews.List(ctx, permission.Anonymous(), title.ID, dto.ListQuery{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrNotFound)
	var comments int64
	require.NoError(t, e.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)
}
