// internal/connector/descriptor.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/yaml.v3"

	"repository-sync/internal/model"
)

// Descriptors larger than this are rejected as malformed.
const maxDescriptorBytes = 1 << 20

var descriptorPattern = regexp.MustCompile(`^https?://[a-zA-Z0-9.\-]+/[a-zA-Z0-9_\-.%/]+\.ya?ml$`)

// Descriptor reads repository metadata from a remote YAML file of the form
//
//	machine-name:
//	  label: Display title
//	  description: Optional text
//	  num_open_issues: 6
type Descriptor struct {
	Base
	client *retryablehttp.Client
}

type descriptorEntry struct {
	Label         string  `yaml:"label"`
	Description   *string `yaml:"description"`
	NumOpenIssues *int    `yaml:"num_open_issues"`
}

// NewDescriptor creates the remote descriptor file connector.
func NewDescriptor(deps Deps) *Descriptor {
	base := newBase(IDDescriptor, "Remote descriptor file", deps)
	client := deps.HTTPClient
	if client == nil {
		client = NewHTTPClient(base.logger, deps.FetchTimeout)
	}
	return &Descriptor{Base: base, client: client}
}

// NewHTTPClient returns a retrying HTTP client that logs through logger.
func NewHTTPClient(logger retryablehttp.LeveledLogger, timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = logger
	client.HTTPClient.Timeout = timeout
	return client
}

func (c *Descriptor) Validate(uri string) bool {
	return descriptorPattern.MatchString(uri)
}

func (c *Descriptor) ValidateHelpText() string {
	return "http://anything.anything/anything/anything.yml (or https or yaml)"
}

func (c *Descriptor) GetRepo(ctx context.Context, uri string) *model.RepositoryMetadata {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, err := c.fetch(ctx, uri)
	if err != nil {
		c.logger.Warn("Descriptor fetch failed", "uri", uri, "error", err)
		return nil
	}

	machineName, entry, err := parseDescriptor(body)
	if err != nil {
		c.logger.Warn("Descriptor is malformed", "uri", uri, "error", err)
		return nil
	}

	return c.ToMetadata(machineName, entry.Label, entry.Description, *entry.NumOpenIssues, uri)
}

func (c *Descriptor) fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptorBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxDescriptorBytes {
		return nil, errors.New("descriptor exceeds size limit")
	}
	return body, nil
}

// parseDescriptor returns the first top-level key and its decoded value.
func parseDescriptor(data []byte) (string, descriptorEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", descriptorEntry{}, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return "", descriptorEntry{}, errors.New("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || len(root.Content) < 2 {
		return "", descriptorEntry{}, errors.New("top level is not a mapping")
	}

	machineName := root.Content[0].Value
	if machineName == "" {
		return "", descriptorEntry{}, errors.New("missing machine name")
	}
	var entry descriptorEntry
	if err := root.Content[1].Decode(&entry); err != nil {
		return "", descriptorEntry{}, err
	}
	switch {
	case entry.Label == "":
		return "", descriptorEntry{}, errors.New("missing label")
	case entry.NumOpenIssues == nil:
		return "", descriptorEntry{}, errors.New("missing num_open_issues")
	case *entry.NumOpenIssues < 0:
		return "", descriptorEntry{}, errors.New("num_open_issues is negative")
	case *entry.NumOpenIssues > math.MaxInt32:
		return "", descriptorEntry{}, errors.New("num_open_issues is out of range")
	}
	return machineName, entry, nil
}
