// Package upload stores featured-image files on local disk and enforces
// the upload constraints: images only, whitelisted extensions, a 5 MiB
// size cap and a single file per request.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/scribehq/scribe-be/internal/models"
)

// MaxFileSize is the upload size cap in bytes.
const MaxFileSize = 5 << 20 // 5 MiB

// FieldName is the multipart form field carrying the image.
const FieldName = "featuredImage"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Characters stripped from uploaded filenames before storing to disk.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// Store saves accepted uploads under a base directory and serves them
// back under a public URL prefix.
type Store struct {
	dir       string
	urlPrefix string
}

// NewStore creates a Store rooted at dir, creating the directory if
// needed. Stored paths are returned relative to urlPrefix, e.g.
// "/uploads/<name>".
func NewStore(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &Store{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Dir returns the on-disk directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// FromRequest extracts and stores the single image file from a multipart
// request. It returns the stored relative path, or "" when the request
// carried no file. Constraint violations return *models.UploadError and
// nothing is written to disk.
func (s *Store) FromRequest(r *http.Request) (string, error) {
	if r.MultipartForm == nil || r.MultipartForm.File == nil {
		return "", nil
	}

	headers := r.MultipartForm.File[FieldName]
	if len(headers) == 0 {
		return "", nil
	}
	if len(headers) > 1 {
		return "", &models.UploadError{Message: "only one file may be uploaded per request"}
	}

	header := headers[0]
	if err := checkConstraints(header); err != nil {
		return "", err
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	name := uniqueName(header.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, MaxFileSize)); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return s.urlPrefix + "/" + name, nil
}

// Remove deletes a previously stored file given its relative path. Used
// for best-effort cleanup when a write fails after the file was accepted;
// failures are logged, not escalated.
func (s *Store) Remove(relPath string) {
	name := filepath.Base(relPath)
	if name == "." || name == "/" {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", name).Msg("Failed to remove uploaded file")
	}
}

func checkConstraints(header *multipart.FileHeader) error {
	if header.Size > MaxFileSize {
		return &models.UploadError{Message: "File size too large. Maximum size is 5MB."}
	}

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return &models.UploadError{Message: "Only image files are allowed."}
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return &models.UploadError{Message: "Invalid file type. Only JPG, PNG and GIF files are allowed."}
	}

	return nil
}

// uniqueName builds the on-disk filename: a unique prefix plus the
// cleaned original name.
func uniqueName(original string) string {
	clean := unsafeChars.ReplaceAllString(filepath.Base(original), "-")
	return uuid.New().String() + "-" + clean
}
