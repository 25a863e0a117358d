package github

import (
	"context"
	"fmt"
	"io"

	"github.com/google/go-github/v81/github"
)

// FetchedFile is a repository file downloaded from GitHub.
type FetchedFile struct {
	Path    string
	Content []byte
	URL     string
}

// Fetcher reads a single corpus file out of a GitHub repository.
type Fetcher struct {
	client *Client
	owner  string
	repo   string
	ref    string
}

// NewFetcher creates a fetcher for owner/repo. An empty ref uses the default branch.
func NewFetcher(client *Client, owner, repo, ref string) *Fetcher {
	return &Fetcher{
		client: client,
		owner:  owner,
		repo:   repo,
		ref:    ref,
	}
}

// FetchFile downloads the file at path. DownloadContents is used instead of
// GetContents so files above the 1MB contents-API limit still work.
func (f *Fetcher) FetchFile(ctx context.Context, path string) (*FetchedFile, error) {
	var opts *github.RepositoryContentGetOptions
	if f.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: f.ref}
	}

	rc, _, err := f.client.Repositories.DownloadContents(ctx, f.owner, f.repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", path, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	branch := f.ref
	if branch == "" {
		branch = "main"
	}

	return &FetchedFile{
		Path:    path,
		Content: content,
		URL:     fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", f.owner, f.repo, branch, path),
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit touching path.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context, path string) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.owner,
		f.repo,
		&github.CommitsListOptions{
			SHA:  f.ref,
			Path: path,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", path)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
