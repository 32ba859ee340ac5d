// Package github keeps the submission log as a file in a GitHub repository,
// using the blob SHA of the contents API as the version token.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

// Store implements ports.VersionedStore on the repository contents API.
type Store struct {
	client *gh.Client
	owner  string
	repo   string
}

var _ ports.VersionedStore = (*Store)(nil)

// NewStore authenticates with a personal access token. repository is "owner/name".
func NewStore(ctx context.Context, token, repository string) (*Store, error) {
	owner, name, err := splitRepository(repository)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &Store{client: gh.NewClient(httpClient), owner: owner, repo: name}, nil
}

// WithBaseURL points the client at another API root (GitHub Enterprise, tests).
func (s *Store) WithBaseURL(raw string) (*Store, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid github base url %s: %w", raw, err)
	}
	s.client.BaseURL = u
	return s, nil
}

// Read fetches the decoded file content and its blob SHA.
func (s *Store) Read(ctx context.Context, path, branch string) (string, string, error) {
	file, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return "", "", domain.ErrNotFound
		}
		return "", "", fmt.Errorf("get %s@%s: %w", path, branch, err)
	}
	if file == nil {
		return "", "", fmt.Errorf("get %s@%s: path is a directory", path, branch)
	}

	// Files over 1 MB come back without inline content.
	if file.GetEncoding() == "none" {
		content, err := s.download(ctx, path, branch)
		if err != nil {
			return "", "", err
		}
		return content, file.GetSHA(), nil
	}

	content, err := file.GetContent()
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", path, err)
	}
	return content, file.GetSHA(), nil
}

func (s *Store) download(ctx context.Context, path, branch string) (string, error) {
	body, _, err := s.client.Repositories.DownloadContents(ctx, s.owner, s.repo, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return "", fmt.Errorf("download %s@%s: %w", path, branch, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(raw), nil
}

// Create commits a new file.
func (s *Store) Create(ctx context.Context, path, branch, message, content string) error {
	_, _, err := s.client.Repositories.CreateFile(ctx, s.owner, s.repo, path, &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: []byte(content),
		Branch:  gh.String(branch),
	})
	if err != nil {
		return s.writeError("create", path, branch, err)
	}
	return nil
}

// Update commits new content on top of the blob identified by version.
func (s *Store) Update(ctx context.Context, path, branch, message, content, version string) error {
	_, _, err := s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, path, &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: []byte(content),
		SHA:     gh.String(version),
		Branch:  gh.String(branch),
	})
	if err != nil {
		return s.writeError("update", path, branch, err)
	}
	return nil
}

func (s *Store) writeError(op, path, branch string, err error) error {
	switch statusOf(err) {
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s %s@%s: %w: %v", op, path, branch, domain.ErrVersionConflict, err)
	}
	return fmt.Errorf("%s %s@%s: %w", op, path, branch, err)
}

func statusOf(err error) int {
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	return 0
}

func splitRepository(repository string) (string, string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repository), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository must look like owner/name, got %q", repository)
	}
	return owner, name, nil
}
