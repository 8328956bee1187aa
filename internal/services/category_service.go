package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/scribehq/scribe-be/internal/models"
)

// CategoryServiceProvider defines the interface for category services.
type CategoryServiceProvider interface {
	ListCategories() ([]models.Category, error)
	CreateCategory(name, description string) (models.Category, error)
}

// CategoryService provides business logic for categories.
type CategoryService struct {
	db *sql.DB
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(db *sql.DB) *CategoryService {
	return &CategoryService{db: db}
}

// ListCategories returns all categories.
func (s *CategoryService) ListCategories() ([]models.Category, error) {
	rows, err := s.db.Query("SELECT id, name, description, created_at FROM categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var (
			cat  models.Category
			desc sql.NullString
		)
		if err := rows.Scan(&cat.ID, &cat.Name, &desc, &cat.CreatedAt); err != nil {
			return nil, err
		}
		cat.Description = desc.String
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// CreateCategory validates and persists a new category.
func (s *CategoryService) CreateCategory(name, description string) (models.Category, error) {
	verr := &models.ValidationError{}
	if name == "" {
		verr.Add("name", "Category name is required")
	} else if len(name) > models.MaxCategoryNameLen {
		verr.Add("name", "Category name cannot exceed 50 characters")
	}
	if len(description) > models.MaxCategoryDescriptionLen {
		verr.Add("description", "Description cannot exceed 200 characters")
	}
	if verr.HasErrors() {
		return models.Category{}, verr
	}

	cat := models.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO categories(id, name, description, created_at) VALUES(?, ?, ?, ?)")
	if err != nil {
		return models.Category{}, err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(cat.ID, cat.Name, nullable(cat.Description), cat.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.Category{}, &models.ConflictError{Message: "Category name already exists"}
		}
		return models.Category{}, err
	}
	return cat, nil
}
