package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	outputDir string
}

func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{outputDir: outputDir}
}

func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

// SaveDeck writes data to path through a temporary file in the same
// directory, so an interrupted write never leaves a truncated deck behind.
func (s *LocalStorage) SaveDeck(data []byte, path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".deck-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write deck: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close deck: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("move deck into place: %w", err)
	}
	return path, nil
}

// ListDecks returns the .pptx files directly inside the output directory.
// A missing directory holds no decks.
func (s *LocalStorage) ListDecks() ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	var decks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), DeckExt) {
			decks = append(decks, filepath.Join(s.outputDir, entry.Name()))
		}
	}
	return decks, nil
}

// Clear removes every deck in the output directory and reports how many
// were deleted.
func (s *LocalStorage) Clear() (int, error) {
	decks, err := s.ListDecks()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range decks {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

func (s *LocalStorage) EnsureDirectories() error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
