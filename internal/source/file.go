package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/evidenceview/internal/model"
)

// FileSource serves evidence lists from a JSON or YAML fixture mapping
// match ids to evidence lists. The file is re-read on every fetch so
// edits show up on refresh.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchEvidences returns the evidences recorded for matchID
func (f *FileSource) FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := f.load()
	if err != nil {
		return nil, err
	}

	evidences, ok := matches[matchID]
	if !ok {
		return nil, fmt.Errorf("match %q not found in %s", matchID, f.path)
	}
	if evidences == nil {
		evidences = []model.Evidence{}
	}
	return evidences, nil
}

// MatchIDs lists the match ids present in the fixture
func (f *FileSource) MatchIDs() ([]string, error) {
	matches, err := f.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *FileSource) load() (map[string][]model.Evidence, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}

	matches := make(map[string][]model.Evidence)
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &matches); err != nil {
			return nil, fmt.Errorf("parse evidence file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &matches); err != nil {
			return nil, fmt.Errorf("parse evidence file: %w", err)
		}
	}
	return matches, nil
}
