package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the history in <dir>/conversation_history.json.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, Key+".json")}
}

// Path is the file the history is written to.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) ([]Conversation, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("conversation: read %s: %w", s.path, err)
	}

	var history []Conversation
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, false, fmt.Errorf("conversation: decode %s: %w", s.path, err)
	}
	return history, true, nil
}

// Save writes to a temp file and renames it over the old history.
func (s *FileStore) Save(_ context.Context, history []Conversation) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("conversation: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("conversation: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), Key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("conversation: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("conversation: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("conversation: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("conversation: rename: %w", err)
	}
	return nil
}
