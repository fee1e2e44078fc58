//go:build integration

package database_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mediareview/database"
	"mediareview/database/importer"
	"mediareview/internal/config"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	provider.Close()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("reviews_test"),
		postgres.WithUsername("reviews"),
		postgres.WithPassword("reviews_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(&config.Config{DatabaseURL: dsn, DBMaxOpenConns: 10, DBMaxIdleConns: 5, GoEnv: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, database.Migrate(db))
	// a second run must be a no-op
	require.NoError(t, database.Migrate(db))
	return db
}

func TestPostgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := repository.NewUserRepository(db)
	titles := repository.NewTitleRepo(db)
	reviews := repository.NewReviewRepository(db)

	t.Run("reserved username is rejected by the schema", func(t *testing.T) {
		err := db.Exec("INSERT INTO users (username, email, role, created_at, updated_at) VALUES ('me', 'me@example.com', 'user', NOW(), NOW())").Error
		assert.Error(t, err)
	})

	alice := &models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
	require.NoError(t, users.Create(ctx, alice))
	title := &models.Title{Name: "Amelie", Year: 2001}
	require.NoError(t, titles.Create(ctx, title))

	t.Run("duplicate email is a unique violation", func(t *testing.T) {
		err := users.Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com", Role: models.RoleUser})
		assert.True(t, repository.IsUniqueViolation(err))
	})

	t.Run("concurrent reviews by one author", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = reviews.Create(ctx, &models.Review{TitleID: title.ID, AuthorID: alice.ID, Text: "race", Score: i%10 + 1})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.True(t, repository.IsUniqueViolation(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, ok)
	})

	t.Run("rating is averaged by the database", func(t *testing.T) {
		for i, score := range []int{3, 4} {
			u := &models.User{Username: "u" + string(rune('a'+i)), Email: string(rune('a'+i)) + "@example.com", Role: models.RoleUser}
			require.NoError(t, users.Create(ctx, u))
			require.NoError(t, reviews.Create(ctx, &models.Review{TitleID: title.ID, AuthorID: u.ID, Text: "x", Score: score}))
		}
		got, err := titles.GetByID(ctx, title.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Rating)

		var sum float64
		require.NoError(t, db.Raw("SELECT SUM(score) FROM reviews WHERE title_id = ?", title.ID).Scan(&sum).Error)
		assert.InDelta(t, sum/3, *got.Rating, 1e-9)
	})

	t.Run("score outside 1..10 violates the check", func(t *testing.T) {
		err := db.Exec("UPDATE reviews SET score = 11 WHERE title_id = ?", title.ID).Error
		assert.Error(t, err)
	})
}

func TestPostgres_ImportResetsSequences(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "genre.csv"), []byte("id,name,slug\n41,Drama,drama\n42,Comedy,comedy\n"), 0o600))

	_, err := importer.New(db).ImportDir(ctx, dir)
	require.NoError(t, err)

	g := &models.Genre{Name: "Horror", Slug: "horror"}
	require.NoError(t, repository.NewGenreRepo(db).Create(ctx, g))
	assert.Greater(t, g.ID, int64(42))
}
