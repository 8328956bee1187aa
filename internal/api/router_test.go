package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribehq/scribe-be/internal/auth"
	"github.com/scribehq/scribe-be/internal/database"
	"github.com/scribehq/scribe-be/internal/services"
	"github.com/scribehq/scribe-be/internal/upload"
)

type testEnv struct {
	router  *chi.Mux
	db      *sql.DB
	uploads *upload.Store
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	uploads, err := upload.NewStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	tokens := auth.NewManager("test-secret", time.Hour)
	router := NewRouter(tokens,
		services.NewUserService(db),
		services.NewPostService(db),
		services.NewCategoryService(db),
		uploads,
		[]string{"http://localhost:5173"})

	return &testEnv{router: router, db: db, uploads: uploads}
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// register creates an account through the API and returns the user ID and
// token.
func (e *testEnv) register(t *testing.T, name, email string) (string, string) {
	t.Helper()

	rec := e.doJSON(t, "POST", "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	user := body["user"].(map[string]any)
	return user["id"].(string), body["token"].(string)
}

func (e *testEnv) createCategory(t *testing.T, name string) string {
	t.Helper()

	rec := e.doJSON(t, "POST", "/api/categories", map[string]string{"name": name}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

// postForm builds a multipart post request; fileSize > 0 attaches a file
// part named per the upload contract.
func (e *testEnv) postForm(t *testing.T, method, path string, fields map[string]string, filename, mimeType string, fileSize int) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileSize > 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, upload.FieldName, filename))
		header.Set("Content-Type", mimeType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("x"), fileSize))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginFlow(t *testing.T) {
	env := setupEnv(t)

	rec := env.doJSON(t, "POST", "/api/auth/register", map[string]string{
		"name": "Ada", "email": "A@x.com", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"], "email stored lower-cased")
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.NotEmpty(t, body["token"])

	// Wrong password: generic 401
	rec = env.doJSON(t, "POST", "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec)["error"])

	// Correct password: token round-trips through /me
	rec = env.doJSON(t, "POST", "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	rec = env.doJSON(t, "GET", "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, user["id"], me["id"])
	assert.Equal(t, "a@x.com", me["email"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupEnv(t)
	env.register(t, "Ada", "ada@x.com")

	rec := env.doJSON(t, "POST", "/api/auth/register", map[string]string{
		"name": "Imposter", "email": "ADA@x.com", "password": "other",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	env := setupEnv(t)

	rec := env.doJSON(t, "POST", "/api/auth/register", map[string]string{"name": "Ada"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errs := decode(t, rec)["errors"].([]any)
	assert.Len(t, errs, 2, "email and password failures reported together")
}

func TestMeRequiresToken(t *testing.T) {
	env := setupEnv(t)

	rec := env.doJSON(t, "GET", "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeUserGone(t *testing.T) {
	env := setupEnv(t)
	userID, token := env.register(t, "Ada", "ada@x.com")

	_, err := env.db.Exec("DELETE FROM users WHERE id = ?", userID)
	require.NoError(t, err)

	rec := env.doJSON(t, "GET", "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePostInvalidCategory(t *testing.T) {
	env := setupEnv(t)
	userID, _ := env.register(t, "Ada", "ada@x.com")

	rec := env.postForm(t, "POST", "/api/posts", map[string]string{
		"title": "T", "content": "C", "category": "not-a-valid-id", "author": userID,
	}, "", "", 0)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	raw := rec.Body.String()
	assert.Contains(t, raw, "category")
}

func TestPostLifecycle(t *testing.T) {
	env := setupEnv(t)
	userID, _ := env.register(t, "Ada", "ada@x.com")
	catID := env.createCategory(t, "Tech")

	rec := env.postForm(t, "POST", "/api/posts", map[string]string{
		"title": "Hello, World!", "content": "The very first post.",
		"category": catID, "author": userID, "tags": "intro, news",
	}, "cover.png", "image/png", 2048)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode(t, rec)
	postID := created["id"].(string)
	assert.Equal(t, "hello-world", created["slug"])
	image := created["featuredImage"].(string)
	assert.True(t, strings.HasPrefix(image, "/uploads/"))

	onDisk := filepath.Join(env.uploads.Dir(), filepath.Base(image))
	_, err := os.Stat(onDisk)
	assert.NoError(t, err, "accepted image is written to disk")

	// Embedded projections
	category := created["category"].(map[string]any)
	assert.Equal(t, "Tech", category["name"])
	author := created["author"].(map[string]any)
	assert.Equal(t, "ada@x.com", author["email"])
	assert.NotContains(t, author, "password")

	// Read it back
	rec = env.doJSON(t, "GET", "/api/posts/"+postID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Partial update: new title regenerates the slug
	rec = env.postForm(t, "PUT", "/api/posts/"+postID, map[string]string{
		"title": "Updated Title",
	}, "", "", 0)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)
	assert.Equal(t, "updated-title", updated["slug"])
	assert.Equal(t, "The very first post.", updated["content"], "absent fields untouched")
	assert.Equal(t, image, updated["featuredImage"], "image kept when no new file supplied")

	// Delete twice: both succeed
	rec = env.doJSON(t, "DELETE", "/api/posts/"+postID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post deleted successfully", decode(t, rec)["message"])

	rec = env.doJSON(t, "DELETE", "/api/posts/"+postID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Gone for reads
	rec = env.doJSON(t, "GET", "/api/posts/"+postID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOversizeUploadRejectedBeforePersist(t *testing.T) {
	env := setupEnv(t)
	userID, _ := env.register(t, "Ada", "ada@x.com")
	catID := env.createCategory(t, "Tech")

	rec := env.postForm(t, "POST", "/api/posts", map[string]string{
		"title": "Big", "content": "body", "category": catID, "author": userID,
	}, "big.jpg", "image/jpeg", 6<<20)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int
	require.NoError(t, env.db.QueryRow("SELECT COUNT(1) FROM posts").Scan(&count))
	assert.Equal(t, 0, count, "no post row written for a rejected upload")
}

func TestListPostsSearch(t *testing.T) {
	env := setupEnv(t)
	userID, _ := env.register(t, "Ada", "ada@x.com")
	catID := env.createCategory(t, "Tech")

	for title, content := range map[string]string{
		"Release notes": "The gopher ships today.",
		"Unrelated":     "Nothing here.",
	} {
		rec := env.postForm(t, "POST", "/api/posts", map[string]string{
			"title": title, "content": content, "category": catID, "author": userID,
		}, "", "", 0)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.doJSON(t, "GET", "/api/posts?q=Gopher", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Release notes", posts[0]["title"])

	// Empty result is an empty array, not null
	rec = env.doJSON(t, "GET", "/api/posts?q=nomatch", nil, "")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestCategoryValidation(t *testing.T) {
	env := setupEnv(t)

	rec := env.doJSON(t, "POST", "/api/categories", map[string]string{
		"name": strings.Repeat("n", 51), "description": strings.Repeat("d", 201),
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode(t, rec)["errors"].([]any), 2)
}

func TestRootAndCategories(t *testing.T) {
	env := setupEnv(t)

	rec := env.doJSON(t, "GET", "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, "GET", "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}
