// Package tracker persists the batch submitter's resume position, a single
// {"index": n} document naming the next URL to process, and serves it over
// HTTP.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// Index is the on-disk document.
type Index struct {
	Index int `json:"index"`
}

// Load returns the stored index. A missing file yields 0 with no error; an
// unreadable or malformed file yields 0 and the error.
func Load(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("tracker: read %s: %w", path, err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return 0, fmt.Errorf("tracker: parse %s: %w", path, err)
	}
	if idx.Index < 0 {
		return 0, fmt.Errorf("tracker: negative index %d in %s", idx.Index, path)
	}
	return idx.Index, nil
}

// Save writes index to path, creating parent directories. The file is
// replaced atomically.
func Save(path string, index int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("tracker: create dir: %w", err)
		}
	}

	data, err := json.Marshal(Index{Index: index})
	if err != nil {
		return fmt.Errorf("tracker: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("tracker: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("tracker: replace: %w", err)
	}
	return nil
}

// Handler returns a handler for GET /tracker that serves the index file
// as stored.
func Handler(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tracker file not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}
