// Package storage persists wallet credit scores.
//
// The primary store is a JSON file holding an array of
// {"userWallet", "credit_score"} objects, written atomically through a
// temporary file. An optional SQLite database keeps a queryable copy of the
// latest scores along with a log of runs.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rewired-gh/credscore/internal/models"
)

// ErrScoresNotFound is returned by Load when no score file exists yet.
var ErrScoresNotFound = errors.New("scores file not found")

// Storage reads and writes the JSON score file
type Storage struct {
	mu sync.Mutex

	// Configuration
	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// New creates a new Storage instance for the given score file.
// Zero permissions fall back to 0644 for the file and 0755 for its directory.
func New(filePath string, filePermissions, dirPermissions os.FileMode) *Storage {
	if filePermissions == 0 {
		filePermissions = 0o644
	}
	if dirPermissions == 0 {
		dirPermissions = 0o755
	}
	return &Storage{
		filePath:        filePath,
		filePermissions: filePermissions,
		dirPermissions:  dirPermissions,
	}
}

// Path returns the score file path.
func (s *Storage) Path() string {
	return s.filePath
}

// Save writes scores to the score file, replacing any previous contents.
// The array is indented four spaces and written in the order given.
func (s *Storage) Save(scores []models.ScoredWallet) error {
	for i := range scores {
		if err := scores[i].Validate(); err != nil {
			return fmt.Errorf("invalid score for %q: %w", scores[i].UserWallet, err)
		}
	}
	if scores == nil {
		scores = []models.ScoredWallet{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Create output directory if needed
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(scores); err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	// Write to temporary file first (atomic write)
	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Load reads scores back from the score file.
func (s *Storage) Load() ([]models.ScoredWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clean up any stale temp file from an interrupted save
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrScoresNotFound, s.filePath)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var scores []models.ScoredWallet
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
	}
	for i := range scores {
		if err := scores[i].Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	if scores == nil {
		scores = []models.ScoredWallet{}
	}
	return scores, nil
}
