// internal/connector/connector.go
package connector

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"repository-sync/internal/github"
	"repository-sync/internal/model"
)

// Connector validates and fetches metadata for one class of remote repository URL.
type Connector interface {
	// ID is the stable connector id stored as the source of every record it produces.
	ID() string
	// Label is a human readable name.
	Label() string
	// Validate reports whether uri has the shape this connector handles. It never performs I/O.
	Validate(uri string) bool
	// ValidateHelpText is an example of an accepted URL.
	ValidateHelpText() string
	// GetRepo fetches metadata for uri. It returns nil when the repository does not exist,
	// cannot be reached or returns something unparseable; failures are logged, not returned.
	GetRepo(ctx context.Context, uri string) *model.RepositoryMetadata
}

// Deps are the shared collaborators handed to every connector factory.
type Deps struct {
	GitHub       *github.Client
	HTTPClient   *retryablehttp.Client
	Logger       *slog.Logger
	FetchTimeout time.Duration
}

// Base carries the fields and metadata mapping shared by the concrete connectors.
type Base struct {
	id           string
	label        string
	logger       *slog.Logger
	fetchTimeout time.Duration
}

func newBase(id, label string, deps Deps) Base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Base{
		id:           id,
		label:        label,
		logger:       logger.With("connector", id),
		fetchTimeout: deps.FetchTimeout,
	}
}

func (b Base) ID() string    { return b.id }
func (b Base) Label() string { return b.label }

// ToMetadata maps connector specific values onto the common metadata format.
func (b Base) ToMetadata(machineName, label string, description *string, numOpenIssues int, url string) *model.RepositoryMetadata {
	return &model.RepositoryMetadata{
		MachineName:   machineName,
		Label:         label,
		Description:   description,
		NumOpenIssues: numOpenIssues,
		Source:        b.id,
		URL:           url,
	}
}

// withTimeout bounds a single fetch by the configured timeout, if any.
func (b Base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.fetchTimeout)
}
