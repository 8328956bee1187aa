// Package maintenance runs background housekeeping. Post updates and
// deletes intentionally leave previously uploaded files on disk; the
// janitor sweeps those orphans out-of-band so the request path stays
// simple.
package maintenance

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/scribehq/scribe-be/internal/upload"
)

// minAge protects in-flight uploads: files younger than this are never
// swept, since a post referencing them may not be committed yet.
const minAge = time.Hour

// Janitor periodically deletes uploaded files that no post references.
type Janitor struct {
	db      *sql.DB
	uploads *upload.Store
	cron    *cron.Cron
}

// NewJanitor creates a janitor running on the given cron schedule, e.g.
// "@hourly".
func NewJanitor(db *sql.DB, uploads *upload.Store, schedule string) (*Janitor, error) {
	j := &Janitor{db: db, uploads: uploads, cron: cron.New()}
	if _, err := j.cron.AddFunc(schedule, j.Sweep); err != nil {
		return nil, err
	}
	return j, nil
}

// Run starts the sweep schedule.
func (j *Janitor) Run() {
	log.Info().Msg("Starting uploads janitor")
	j.cron.Start()
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("Stopped uploads janitor")
}

// Sweep removes orphaned upload files. Failures are logged and the sweep
// moves on; the next run will retry.
func (j *Janitor) Sweep() {
	referenced, err := j.referencedFiles()
	if err != nil {
		log.Error().Err(err).Msg("Janitor: failed to load referenced images")
		return
	}

	entries, err := os.ReadDir(j.uploads.Dir())
	if err != nil {
		log.Error().Err(err).Msg("Janitor: failed to read uploads directory")
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || referenced[entry.Name()] {
			continue
		}
		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) < minAge {
			continue
		}
		if err := os.Remove(filepath.Join(j.uploads.Dir(), entry.Name())); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Janitor: failed to remove orphaned file")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Janitor: swept orphaned upload files")
	}
}

// referencedFiles returns the base names of every image a post points at.
func (j *Janitor) referencedFiles() (map[string]bool, error) {
	rows, err := j.db.Query("SELECT featured_image FROM posts WHERE featured_image IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	referenced := make(map[string]bool)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		referenced[filepath.Base(path)] = true
	}
	return referenced, rows.Err()
}
