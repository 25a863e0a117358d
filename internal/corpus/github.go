package corpus

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/github"
)

// GitHubSource downloads the corpus JSON from a repository file.
type GitHubSource struct {
	fetcher *github.Fetcher
	path    string
	label   string
}

// NewGitHubSource creates a source reading path through fetcher.
func NewGitHubSource(fetcher *github.Fetcher, owner, repo, path string) *GitHubSource {
	return &GitHubSource{
		fetcher: fetcher,
		path:    path,
		label:   fmt.Sprintf("github:%s/%s/%s", owner, repo, path),
	}
}

func (s *GitHubSource) Load(ctx context.Context) ([]Part, error) {
	file, err := s.fetcher.FetchFile(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusLoad, err)
	}
	return Parse(bytes.NewReader(file.Content))
}

// Version reports the latest commit touching the corpus file.
func (s *GitHubSource) Version(ctx context.Context) (string, error) {
	return s.fetcher.GetLatestCommitSHA(ctx, s.path)
}

func (s *GitHubSource) Describe() string {
	return s.label
}
