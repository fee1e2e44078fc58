package repository

import (
	"context"
	"fmt"

	"mediareview/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ratingColumn is evaluated in the same statement that reads the titles, so
// a read sees every review committed before it started.
const ratingColumn = "(SELECT CAST(AVG(reviews.score) AS DOUBLE PRECISION) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// TitleFilter narrows title lists. Zero values are ignored.
type TitleFilter struct {
	Name     string // case-insensitive substring
	Category string // category slug
	Genre    string // genre slug
	Year     *int
}

type TitleRepository interface {
	List(ctx context.Context, f TitleFilter, page Page) ([]models.Title, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Title, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, t *models.Title) error
	Update(ctx context.Context, t *models.Title, replaceGenres bool) error
	Delete(ctx context.Context, id int64) error
}

type titleRepo struct {
	db *gorm.DB
}

func NewTitleRepo(db *gorm.DB) TitleRepository {
	return &titleRepo{db: db}
}

func (r *titleRepo) withRelations(db *gorm.DB) *gorm.DB {
	return db.Select("titles.*, " + ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("genres.name asc")
		})
}

func (r *titleRepo) List(ctx context.Context, f TitleFilter, page Page) ([]models.Title, int64, error) {
	var list []models.Title
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Title{})
	if f.Name != "" {
		q = q.Where(ilike("titles.name"), likePattern(f.Name))
	}
	if f.Category != "" {
		q = q.Where("titles.category_id IN (?)",
			r.db.Model(&models.Category{}).Select("id").Where("slug = ?", f.Category))
	}
	if f.Genre != "" {
		q = q.Where("EXISTS (SELECT 1 FROM title_genres JOIN genres ON genres.id = title_genres.genre_id WHERE title_genres.title_id = titles.id AND genres.slug = ?)", f.Genre)
	}
	if f.Year != nil {
		q = q.Where("titles.year = ?", *f.Year)
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	err := r.withRelations(q).
		Scopes(paginate(page)).
		Order("titles.name asc").
		Order("titles.id asc").
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	return list, total, nil
}

func (r *titleRepo) GetByID(ctx context.Context, id int64) (*models.Title, error) {
	var t models.Title
	if err := r.withRelations(r.db.WithContext(ctx)).Where("titles.id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *titleRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return n > 0, nil
}

// Create inserts the title and links it to t.Genres, which must already exist.
func (r *titleRepo) Create(ctx context.Context, t *models.Title) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return fmt.Errorf("create title: %w", err)
		}
		return linkGenres(tx, t.ID, t.Genres)
	})
}

// Update saves the scalar columns. When replaceGenres is set the genre links
// are replaced by t.Genres.
func (r *titleRepo) Update(ctx context.Context, t *models.Title, replaceGenres bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(t).Error; err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		if !replaceGenres {
			return nil
		}
		if err := tx.Where("title_id = ?", t.ID).Delete(&models.TitleGenre{}).Error; err != nil {
			return fmt.Errorf("clear title genres: %w", err)
		}
		return linkGenres(tx, t.ID, t.Genres)
	})
}

// Delete removes the title with its reviews, their comments and its genre
// links in one transaction.
func (r *titleRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := tx.Model(&models.Review{}).Select("id").Where("title_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviews).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete title comments: %w", err)
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("delete title reviews: %w", err)
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.TitleGenre{}).Error; err != nil {
			return fmt.Errorf("delete title genres: %w", err)
		}
		result := tx.Delete(&models.Title{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete title: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func linkGenres(tx *gorm.DB, titleID int64, genres []models.Genre) error {
	if len(genres) == 0 {
		return nil
	}
	links := make([]models.TitleGenre, 0, len(genres))
	seen := make(map[int64]bool, len(genres))
	for _, g := range genres {
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		links = append(links, models.TitleGenre{TitleID: titleID, GenreID: g.ID})
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("link title genres: %w", err)
	}
	return nil
}
