package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"mailsweep/internal/model"
)

// JSONFile stores the history as one JSON object keyed by sender email.
type JSONFile struct {
	Path string
}

// NewJSONFile returns a backend for the file at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

func (f *JSONFile) Load(_ context.Context) (map[string]model.HistoryRecord, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]model.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	records := map[string]model.HistoryRecord{}
	if len(b) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return records, nil
}

// Save rewrites the whole file through a temp file and rename.
func (f *JSONFile) Save(_ context.Context, records map[string]model.HistoryRecord) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
