// internal/connector/github.go
package connector

import (
	"context"
	"math"
	"net/url"
	"regexp"
	"strings"

	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/github"
	"repository-sync/internal/model"
)

var githubPattern = regexp.MustCompile(`^https://github\.com/[a-zA-Z0-9_\-]+/[a-zA-Z0-9_\-]+`)

// GitHub fetches repository metadata from the GitHub REST API.
type GitHub struct {
	Base
	client *github.Client
}

// NewGitHub creates the GitHub connector. A nil client falls back to an anonymous one.
func NewGitHub(deps Deps) *GitHub {
	base := newBase(IDGitHub, "GitHub", deps)
	client := deps.GitHub
	if client == nil {
		client = github.NewClient("", base.logger)
	}
	return &GitHub{Base: base, client: client}
}

func (c *GitHub) Validate(uri string) bool {
	return githubPattern.MatchString(uri)
}

func (c *GitHub) ValidateHelpText() string {
	return "https://github.com/vendor/name"
}

func (c *GitHub) GetRepo(ctx context.Context, uri string) *model.RepositoryMetadata {
	owner, name, err := parseOwnerAndName(uri)
	if err != nil {
		c.logger.Warn("Cannot parse GitHub URL", "uri", uri, "error", err)
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	repo, err := c.client.GetRepository(ctx, owner, name)
	if err != nil {
		c.logger.Warn("GitHub repository fetch failed", "uri", uri, "error", err)
		return nil
	}

	if repo.OpenIssuesCount > math.MaxInt32 {
		c.logger.Warn("GitHub repository issue count out of range", "uri", uri, "num_open_issues", repo.OpenIssuesCount)
		return nil
	}

	return c.ToMetadata(repo.FullName, repo.Name, repo.Description, repo.OpenIssuesCount, uri)
}

// parseOwnerAndName extracts the first two path segments of a GitHub URL.
func parseOwnerAndName(uri string) (string, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &custom_errors.ErrInvalidRepoFormat{Repo: uri}
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
