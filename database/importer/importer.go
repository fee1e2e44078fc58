// Package importer loads the catalog fixtures shipped as CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mediareview/internal/logging"
	"mediareview/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

const batchSize = 100

// Stats counts the rows written per table.
type Stats map[string]int

// file describes one fixture: its name on disk, the table it fills and how
// a row becomes a record.
type file struct {
	name  string
	table string
	load  func(tx *gorm.DB, rows []row) (int, error)
}

// Files are imported in dependency order.
var files = []file{
	{"category.csv", "categories", loadCategories},
	{"genre.csv", "genres", loadGenres},
	{"titles.csv", "titles", loadTitles},
	{"genre_title.csv", "title_genres", loadTitleGenres},
	{"users.csv", "users", loadUsers},
	{"review.csv", "reviews", loadReviews},
	{"comments.csv", "comments", loadComments},
}

type Importer struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// ImportDir loads every known fixture found in dir inside one transaction.
// Missing files are skipped; any bad row aborts the whole import.
func (i *Importer) ImportDir(ctx context.Context, dir string) (Stats, error) {
	stats := Stats{}
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range files {
			path := filepath.Join(dir, f.name)
			rows, err := readCSV(path)
			if errors.Is(err, fs.ErrNotExist) {
				logging.Ctx(ctx).Warn().Str("file", path).Msg("fixture missing, skipped")
				continue
			}
			if err != nil {
				return err
			}

			n, err := f.load(tx, rows)
			if err != nil {
				return fmt.Errorf("import %s: %w", f.name, err)
			}
			stats[f.table] = n
			logging.Ctx(ctx).Info().Str("file", f.name).Int("rows", n).Msg("imported")
		}
		return resetSequences(tx, stats)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// resetSequences moves postgres id sequences past the imported ids.
func resetSequences(tx *gorm.DB, stats Stats) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	for table := range stats {
		if table == "title_genres" {
			continue
		}
		q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)", table)
		if err := tx.Exec(q).Error; err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}

// row is one CSV record keyed by header.
type row struct {
	line   int
	fields map[string]string
}

func (r row) str(key string) string {
	return strings.TrimSpace(r.fields[key])
}

func (r row) int64(key string) (int64, error) {
	v, err := strconv.ParseInt(r.str(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s: %w", r.line, key, err)
	}
	return v, nil
}

func (r row) int(key string) (int, error) {
	v, err := r.int64(key)
	return int(v), err
}

// optInt64 returns nil for an empty cell.
func (r row) optInt64(key string) (*int64, error) {
	if r.str(key) == "" {
		return nil, nil
	}
	v, err := r.int64(key)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999-07:00", "2006-01-02 15:04:05", "2006-01-02"}

func (r row) time(key string) (time.Time, error) {
	s := r.str(key)
	if s == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("line %d: %s: unrecognised time %q", r.line, key, s)
}

func readCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	var rows []row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				fields[h] = rec[i]
			}
		}
		rows = append(rows, row{line: line, fields: fields})
	}
	return rows, nil
}

func insert[T any](tx *gorm.DB, records []T) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(records, batchSize).Error; err != nil {
		return 0, err
	}
	return len(records), nil
}

func loadCategories(tx *gorm.DB, rows []row) (int, error) {
	out := make([]models.Category, 0, len(rows))
	for _, r := range rows {
		id, err := r.int64("id")
		if err != nil {
			return 0, err
		}
		out = append(out, models.Category{ID: id, Name: r.str("name"), Slug: r.str("slug")})
	}
	return insert(tx, out)
}

func loadGenres(tx *gorm.DB, rows []row) (int, error) {
	out := make([]models.Genre, 0, len(rows))
	for _, r := range rows {
		id, err := r.int64("id")
		if err != nil {
			return 0, err
		}
		out = append(out, models.Genre{ID: id, Name: r.str("name"), Slug: r.str("slug")})
	}
	return insert(tx, out)
}

func loadTitles(tx *gorm.DB, rows []row) (int, error) {
	out := make([]models.Title, 0, len(rows))
	for _, r := range rows {
		id, err := r.int64("id")
		if err != nil {
			return 0, err
		}
		year, err := r.int("year")
		if err != nil {
			return 0, err
		}
		category, err := r.optInt64("category")
		if err != nil {
			return 0, err
		}
		out = append(out, models.Title{
			ID:          id,
			Name:        r.str("name"),
			Year:        year,
			Description: r.str("description"),
			CategoryID:  category,
		})
	}
	if len(out) == 0 {
		return 0, nil
	}
	if err := tx.Omit("Category", "Genres").CreateInBatches(out, batchSize).Error; err != nil {
		return 0, err
	}
	return len(out), nil
}

func loadTitleGenres(tx *gorm.DB, rows []row) (int, error) {
	out := make([]models.TitleGenre, 0, len(rows))
	for _, r := range rows {
		titleID, err := r.int64("title_id")
		if err != nil {
			return 0, err
		}
		genreID, err := r.int64("genre_id")
		if err != nil {
			return 0, err
		}
		out = append(out, models.TitleGenre{TitleID: titleID, GenreID: genreID})
	}
	return insert(tx, out)
}

func loadUsers(tx *gorm.DB, rows []row) (int, error) {
	out := make([]models.User, 0, len(rows))
	for _, r := range rows {
		id, err := r.int64("id")
		if err != nil {
			return 0, err
		}
		role := r.str("role")
		if role == "" {
			role = models.RoleUser
		}
		out = append(out, models.User{
			ID:        id,
			Username:  r.str("username"),
			Email:     r.str("email"),
			Role:      role,
			Bio:       r.str("bio"),
			FirstName: r.str("first_name"),
			LastName:  r.str("last_name"),
		})
	}
	return insert(tx, out)
}

func loadReviews(tx *gorm.DB, rows []row) (int, error) {
	out := make([]models.Review, 0, len(rows))
	for _, r := range rows {
		id, err := r.int64("id")
		if err != nil {
			return 0, err
		}
		titleID, err := r.int64("title_id")
		if err != nil {
			return 0, err
		}
		author, err := r.int64("author")
		if err != nil {
			return 0, err
		}
		score, err := r.int("score")
		if err != nil {
			return 0, err
		}
		pub, err := r.time("pub_date")
		if err != nil {
			return 0, err
		}
		out = append(out, models.Review{
			ID: id, TitleID: titleID, AuthorID: author,
			Text: r.str("text"), Score: score, PubDate: pub,
		})
	}
	if len(out) == 0 {
		return 0, nil
	}
	if err := tx.Omit("Author", "Title").CreateInBatches(out, batchSize).Error; err != nil {
		return 0, err
	}
	return len(out), nil
}

func loadComments(tx *gorm.DB, rows []row) (int, error) {
	out := make([]models.Comment, 0, len(rows))
	for _, r := range rows {
		id, err := r.int64("id")
		if err != nil {
			return 0, err
		}
		reviewID, err := r.int64("review_id")
		if err != nil {
			return 0, err
		}
		author, err := r.int64("author")
		if err != nil {
			return 0, err
		}
		pub, err := r.time("pub_date")
		if err != nil {
			return 0, err
		}
		out = append(out, models.Comment{
			ID: id, ReviewID: reviewID, AuthorID: author,
			Text: r.str("text"), PubDate: pub,
		})
	}
	if len(out) == 0 {
		return 0, nil
	}
	if err := tx.Omit("Author", "Review").CreateInBatches(out, batchSize).Error; err != nil {
		return 0, err
	}
	return len(out), nil
}
