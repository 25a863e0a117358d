package corpus

import (
	"context"
	"fmt"
	"os"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// DefaultPath is where the corpus JSON is expected when no source is configured.
const DefaultPath = "data/Constitution.json"

// FileSource reads the corpus from a local JSON file.
type FileSource struct {
	Path string
}

// NewFileSource returns a source for path, or DefaultPath when empty.
func NewFileSource(path string) *FileSource {
	if path == "" {
		path = DefaultPath
	}
	return &FileSource{Path: path}
}

func (s *FileSource) Load(ctx context.Context) ([]Part, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusLoad, err)
	}
	defer f.Close()
	return Parse(f)
}

func (s *FileSource) Describe() string {
	return "file:" + s.Path
}
