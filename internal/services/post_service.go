package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/scribehq/scribe-be/internal/models"
)

const (
	// DefaultPage and DefaultLimit apply when pagination parameters are
	// absent or not numeric.
	DefaultPage  = 1
	DefaultLimit = 10

	// excerptLen caps an excerpt derived from post content.
	excerptLen = 150
)

// PostInput carries the fields for creating a post.
type PostInput struct {
	Title         string
	Content       string
	Excerpt       string
	Category      string
	Author        string
	Tags          []string
	FeaturedImage string
}

// PostUpdate carries a partial update: nil fields are left untouched on
// the existing record.
type PostUpdate struct {
	Title         *string
	Content       *string
	Excerpt       *string
	Category      *string
	Author        *string
	Tags          *[]string
	FeaturedImage *string
}

// PostQuery holds the list filters parsed from query parameters.
type PostQuery struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	ListPosts(q PostQuery) ([]models.Post, error)
	GetPost(id string) (models.Post, error)
	CreatePost(in PostInput) (models.Post, error)
	UpdatePost(id string, up PostUpdate) (models.Post, error)
	DeletePost(id string) error
}

// PostService provides business logic for posts.
type PostService struct {
	db *sql.DB
}

// NewPostService creates a new PostService.
func NewPostService(db *sql.DB) *PostService {
	return &PostService{db: db}
}

// likeEscaper neutralizes LIKE wildcards in user-supplied search terms,
// so a query like "100%" matches the literal text.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Columns selected for every post read, with category and author joined
// in so results embed the full related records.
const postSelect = `
	SELECT p.id, p.title, p.slug, p.content, p.excerpt, p.featured_image,
	       p.category_id, p.author_id, p.tags_json, p.created_at, p.updated_at,
	       c.id, c.name, c.description, c.created_at,
	       u.id, u.name, u.email, u.created_at
	FROM posts p
	JOIN categories c ON c.id = p.category_id
	JOIN users u ON u.id = p.author_id`

// ListPosts returns posts matching the query, newest first. The category
// filter is an exact ID match; the search term matches title or content
// case-insensitively.
func (s *PostService) ListPosts(q PostQuery) ([]models.Post, error) {
	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	query := postSelect
	var (
		conds []string
		args  []any
	)
	if q.Category != "" {
		conds = append(conds, "p.category_id = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Search)) + "%"
		conds = append(conds, `(LOWER(p.title) LIKE ? ESCAPE '\' OR LOWER(p.content) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// GetPost retrieves a single post with its category and author embedded.
func (s *PostService) GetPost(id string) (models.Post, error) {
	row := s.db.QueryRow(postSelect+" WHERE p.id = ?", id)
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Post{}, &models.NotFoundError{Resource: "post", ID: id}
		}
		return models.Post{}, err
	}
	return post, nil
}

// CreatePost validates the input, derives the slug and excerpt, persists
// the post and returns it re-read with embedded references.
func (s *PostService) CreatePost(in PostInput) (models.Post, error) {
	verr := &models.ValidationError{}
	if in.Title == "" {
		verr.Add("title", "Title is required")
	}
	if in.Content == "" {
		verr.Add("content", "Content is required")
	}
	if !isValidID(in.Category) {
		verr.Add("category", "Invalid category ID")
	}
	if !isValidID(in.Author) {
		verr.Add("author", "Invalid author ID")
	}
	if verr.HasErrors() {
		return models.Post{}, verr
	}

	excerpt := in.Excerpt
	if excerpt == "" {
		excerpt = deriveExcerpt(in.Content)
	}

	tagsJSON, err := marshalTags(in.Tags)
	if err != nil {
		return models.Post{}, err
	}

	now := time.Now().UTC()
	id := uuid.New().String()

	stmt, err := s.db.Prepare(`INSERT INTO posts
		(id, title, slug, content, excerpt, featured_image, category_id, author_id, tags_json, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return models.Post{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(id, in.Title, Slugify(in.Title), in.Content, excerpt,
		nullable(in.FeaturedImage), in.Category, in.Author, tagsJSON, now, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Post{}, danglingReferenceError(verr)
		}
		return models.Post{}, err
	}

	return s.GetPost(id)
}

// UpdatePost merges the supplied fields onto the existing record. The
// slug is regenerated only when a new title is supplied, and the stored
// image path is replaced only when a new file accompanied the request.
func (s *PostService) UpdatePost(id string, up PostUpdate) (models.Post, error) {
	existing, err := s.GetPost(id)
	if err != nil {
		return models.Post{}, err
	}

	verr := &models.ValidationError{}
	if up.Title != nil {
		if *up.Title == "" {
			verr.Add("title", "Title is required")
		} else {
			existing.Title = *up.Title
			existing.Slug = Slugify(*up.Title)
		}
	}
	if up.Content != nil {
		if *up.Content == "" {
			verr.Add("content", "Content is required")
		} else {
			existing.Content = *up.Content
		}
	}
	if up.Category != nil {
		if !isValidID(*up.Category) {
			verr.Add("category", "Invalid category ID")
		} else {
			existing.CategoryID = *up.Category
		}
	}
	if up.Author != nil {
		if !isValidID(*up.Author) {
			verr.Add("author", "Invalid author ID")
		} else {
			existing.AuthorID = *up.Author
		}
	}
	if verr.HasErrors() {
		return models.Post{}, verr
	}
	if up.Excerpt != nil {
		existing.Excerpt = *up.Excerpt
	}
	if up.Tags != nil {
		existing.Tags = *up.Tags
	}
	if up.FeaturedImage != nil {
		existing.FeaturedImage = *up.FeaturedImage
	}

	tagsJSON, err := marshalTags(existing.Tags)
	if err != nil {
		return models.Post{}, err
	}

	stmt, err := s.db.Prepare(`UPDATE posts SET title = ?, slug = ?, content = ?,
		excerpt = ?, featured_image = ?, category_id = ?, author_id = ?,
		tags_json = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return models.Post{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(existing.Title, existing.Slug, existing.Content,
		existing.Excerpt, nullable(existing.FeaturedImage), existing.CategoryID,
		existing.AuthorID, tagsJSON, time.Now().UTC(), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Post{}, danglingReferenceError(verr)
		}
		return models.Post{}, err
	}

	return s.GetPost(id)
}

// DeletePost removes a post. Deleting an already-absent ID is still a
// success; the associated uploaded file is not cleaned up here.
func (s *PostService) DeletePost(id string) error {
	_, err := s.db.Exec("DELETE FROM posts WHERE id = ?", id)
	return err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var (
		post     models.Post
		excerpt  sql.NullString
		image    sql.NullString
		tagsJSON sql.NullString
		category models.Category
		catDesc  sql.NullString
		author   models.User
	)
	err := row.Scan(&post.ID, &post.Title, &post.Slug, &post.Content, &excerpt, &image,
		&post.CategoryID, &post.AuthorID, &tagsJSON, &post.CreatedAt, &post.UpdatedAt,
		&category.ID, &category.Name, &catDesc, &category.CreatedAt,
		&author.ID, &author.Name, &author.Email, &author.CreatedAt)
	if err != nil {
		return models.Post{}, err
	}

	post.Excerpt = excerpt.String
	post.FeaturedImage = image.String
	category.Description = catDesc.String
	post.Category = &category
	post.Author = &author

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &post.Tags); err != nil {
			return models.Post{}, err
		}
	}
	return post, nil
}

func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isValidID reports whether s has the shape of a record identifier. The
// check is format-only; existence is enforced by the schema's foreign
// keys at write time.
func isValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

var (
	nonWord = regexp.MustCompile(`[^\w ]+`)
	spaces  = regexp.MustCompile(` +`)
)

// Slugify derives a URL-safe slug from a title: lowercased, non-word
// characters stripped, runs of spaces collapsed to hyphens.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = nonWord.ReplaceAllString(slug, "")
	return spaces.ReplaceAllString(slug, "-")
}

func deriveExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLen {
		return content
	}
	return string(runes[:excerptLen]) + "..."
}

// danglingReferenceError reports a foreign key failure against both
// reference fields; SQLite does not say which constraint tripped.
func danglingReferenceError(verr *models.ValidationError) *models.ValidationError {
	const msg = "Referenced category or author does not exist"
	verr.Add("category", msg)
	verr.Add("author", msg)
	return verr
}

// isForeignKeyViolation reports whether err is a SQLite foreign key
// constraint failure.
func isForeignKeyViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
