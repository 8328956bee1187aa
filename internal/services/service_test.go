package services

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scribehq/scribe-be/internal/database"
	"github.com/scribehq/scribe-be/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *sql.DB) models.User {
	t.Helper()

	user, err := NewUserService(db).Register("Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	return user
}

func seedCategory(t *testing.T, db *sql.DB) models.Category {
	t.Helper()

	cat, err := NewCategoryService(db).CreateCategory("General", "")
	require.NoError(t, err)
	return cat
}
