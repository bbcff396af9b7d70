// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

const (
	// Attempts made for a single API call before giving up.
	maxRetries = 3
	// Upper bound for sleeping on a primary or secondary rate limit.
	maxRateLimitWait = time.Minute
)

// Repository is the subset of GitHub repository data the connectors use.
type Repository struct {
	FullName        string
	Name            string
	Description     *string
	OpenIssuesCount int
	HTMLURL         string
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh           *github.Client
	logger       *slog.Logger
	retryBackoff time.Duration
}

// NewClient creates and configures a new Client instance.
// A non-empty token is used to create an authenticated http.Client; an empty token makes anonymous calls.
func NewClient(token string, logger *slog.Logger) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh:           github.NewClient(hc),
		logger:       logger,
		retryBackoff: 500 * time.Millisecond,
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	gh, err := c.gh.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{gh: gh, logger: c.logger, retryBackoff: c.retryBackoff}, nil
}

// GetRepository fetches repository details and translates them to our Repository type.
// Server errors are retried up to maxRetries times and rate limits are waited out.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
		if err == nil {
			return toRepository(repo), nil
		}
		lastErr = err

		wait, retry := c.retryDelay(err, attempt)
		if !retry || attempt == maxRetries {
			break
		}
		c.logger.Debug("Retrying GitHub request", "owner", owner, "repo", name, "attempt", attempt, "wait", wait.String(), "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// retryDelay decides whether err is worth retrying and how long to wait first.
func (c *Client) retryDelay(err error, attempt int) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return capWait(time.Until(rateErr.Rate.Reset.Time)), true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if abuseErr.RetryAfter != nil {
			return capWait(*abuseErr.RetryAfter), true
		}
		return c.retryBackoff * time.Duration(attempt), true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError {
		return c.retryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func capWait(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > maxRateLimitWait {
		return maxRateLimitWait
	}
	return d
}

// toRepository translates a github.Repository object to our Repository.
func toRepository(r *github.Repository) *Repository {
	return &Repository{
		FullName:        r.GetFullName(),
		Name:            r.GetName(),
		Description:     r.Description,
		OpenIssuesCount: r.GetOpenIssuesCount(),
		HTMLURL:         r.GetHTMLURL(),
	}
}
