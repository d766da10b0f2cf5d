package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"balanced-meal-planner/internal/recipe"

	"github.com/goccy/go-json"
)

// CatalogStore is a directory of JSON recipe files, used to import a recipe
// catalog in bulk and to export the database. Files hold either one recipe
// object or an array of them; French and English field names are accepted.
type CatalogStore struct {
	basePath string
}

// NewCatalogStore creates a new CatalogStore and ensures the base directory exists.
func NewCatalogStore(basePath string) (*CatalogStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &CatalogStore{basePath: basePath}, nil
}

// sanitize makes an id or timestamp safe for filenames.
func sanitize(s string) string {
	return strings.NewReplacer(":", "-", "/", "-", "\\", "-", " ", "_").Replace(s)
}

// getVersionedPath returns the full path for a given recipe ID and version.
func (s *CatalogStore) getVersionedPath(recipeID, updatedAt string) string {
	name := sanitize(recipeID)
	if updatedAt != "" {
		name += "_" + sanitize(updatedAt)
	}
	return filepath.Join(s.basePath, name+".json")
}

// Save writes one recipe file, replacing older versions of the same recipe.
func (s *CatalogStore) Save(rec recipe.Candidate) error {
	if rec.ID == "" {
		return fmt.Errorf("failed to save recipe %q: missing id", rec.Name)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}
	if err := s.RemoveStaleVersions(rec.ID); err != nil {
		return err
	}

	filePath := s.getVersionedPath(rec.ID, rec.UpdatedAt)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	return nil
}

// Load retrieves a recipe from a specific version file.
func (s *CatalogStore) Load(recipeID, updatedAt string) (*recipe.Candidate, error) {
	data, err := os.ReadFile(s.getVersionedPath(recipeID, updatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	recs, err := decode(data)
	if err != nil {
		return nil, err
	}
	if len(recs) != 1 {
		return nil, fmt.Errorf("expected one recipe in file, got %d", len(recs))
	}
	return &recs[0], nil
}

// Exists checks if a specific version of a recipe file exists.
func (s *CatalogStore) Exists(recipeID, updatedAt string) bool {
	_, err := os.Stat(s.getVersionedPath(recipeID, updatedAt))
	return err == nil
}

// RemoveStaleVersions removes all files associated with a recipeID.
func (s *CatalogStore) RemoveStaleVersions(recipeID string) error {
	id := sanitize(recipeID)
	for _, pattern := range []string{id + ".json", id + "_*.json"} {
		matches, err := filepath.Glob(filepath.Join(s.basePath, pattern))
		if err != nil {
			return fmt.Errorf("failed to glob stale files: %w", err)
		}
		for _, match := range matches {
			if err := os.Remove(match); err != nil {
				return fmt.Errorf("failed to remove stale file %s: %w", match, err)
			}
		}
	}
	return nil
}

// FileError reports a catalog file that could not be imported.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ListAll reads every *.json file of the directory in name order. Files or
// entries that cannot be decoded are reported and skipped.
func (s *CatalogStore) ListAll() ([]recipe.Candidate, []FileError, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list catalog files: %w", err)
	}
	sort.Strings(matches)

	var (
		all    []recipe.Candidate
		failed []FileError
	)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			failed = append(failed, FileError{Path: path, Err: err})
			continue
		}
		recs, err := decode(data)
		if err != nil {
			failed = append(failed, FileError{Path: path, Err: err})
		}
		all = append(all, recs...)
	}
	return all, failed, nil
}

// decode accepts a single object or an array of objects. Invalid entries of
// an array are skipped and reported in the returned error.
func decode(data []byte) ([]recipe.Candidate, error) {
	data = bytes.TrimSpace(data)
	var bags []map[string]any
	if bytes.HasPrefix(data, []byte("[")) {
		if err := json.Unmarshal(data, &bags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe list: %w", err)
		}
	} else {
		var bag map[string]any
		if err := json.Unmarshal(data, &bag); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe: %w", err)
		}
		bags = append(bags, bag)
	}

	out := make([]recipe.Candidate, 0, len(bags))
	var invalid int
	for _, bag := range bags {
		rec, err := recipe.FromFields(bag)
		if err != nil {
			invalid++
			continue
		}
		out = append(out, rec)
	}
	if invalid > 0 {
		return out, fmt.Errorf("skipped %d invalid recipe entries", invalid)
	}
	return out, nil
}
