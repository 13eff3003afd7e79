package azuredevops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when the API answers 404 for a definition, file or
// build.
var ErrNotFound = errors.New("resource not found")

// Config holds the connection settings for one Azure DevOps project.
type Config struct {
	ServerURL    string // e.g. https://dev.azure.com
	Organization string
	Project      string
	PAT          string
	APIVersion   string // e.g. "6.0"
	RepositoryID string // git repository holding the pipeline YAML files
	Timeout      time.Duration
}

// Client is the HTTP wrapper for the Azure DevOps REST API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Azure DevOps client. Every request carries the
// client timeout so an unresponsive server cannot stall callers.
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "6.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		baseURL:    fmt.Sprintf("%s/%s/%s", cfg.ServerURL, cfg.Organization, cfg.Project),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// SetBaseURL overrides the computed project URL for testing purposes.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// GetDefinition fetches a pipeline definition by id.
func (c *Client) GetDefinition(ctx context.Context, definitionID int) (*BuildDefinition, error) {
	u := fmt.Sprintf("%s/_apis/build/definitions/%d?api-version=%s", c.baseURL, definitionID, c.cfg.APIVersion)

	var def BuildDefinition
	if err := c.getJSON(ctx, u, &def); err != nil {
		return nil, fmt.Errorf("failed to get pipeline definition %d: %w", definitionID, err)
	}
	return &def, nil
}

// YAMLFilename resolves the pipeline definition's YAML filename, falling
// back to the platform default when the definition does not name one.
func (c *Client) YAMLFilename(ctx context.Context, definitionID int) (string, error) {
	def, err := c.GetDefinition(ctx, definitionID)
	if err != nil {
		return "", err
	}
	if def.Process.YamlFilename == "" {
		return "azure-pipelines.yml", nil
	}
	return def.Process.YamlFilename, nil
}

// GetFileContent fetches a file from the configured git repository.
func (c *Client) GetFileContent(ctx context.Context, path string) (string, error) {
	u := fmt.Sprintf("%s/_apis/git/repositories/%s/items?path=/%s&api-version=%s",
		c.baseURL, c.cfg.RepositoryID, url.QueryEscape(path), c.cfg.APIVersion)

	body, err := c.getRaw(ctx, u)
	if err != nil {
		return "", fmt.Errorf("failed to get file %s: %w", path, err)
	}
	return string(body), nil
}

// GetLatestBuild fetches the most recent build for a definition, or
// ErrNotFound when none exist.
func (c *Client) GetLatestBuild(ctx context.Context, definitionID int) (*Build, error) {
	u := fmt.Sprintf("%s/_apis/build/builds?definitions=%d&$top=1&api-version=%s",
		c.baseURL, definitionID, c.cfg.APIVersion)

	var list buildList
	if err := c.getJSON(ctx, u, &list); err != nil {
		return nil, fmt.Errorf("failed to get latest build for definition %d: %w", definitionID, err)
	}
	if len(list.Value) == 0 {
		return nil, fmt.Errorf("definition %d has no builds: %w", definitionID, ErrNotFound)
	}
	return &list.Value[0], nil
}

// GetBuildTimeline fetches the step timeline of a build.
func (c *Client) GetBuildTimeline(ctx context.Context, buildID int) (*Timeline, error) {
	u := fmt.Sprintf("%s/_apis/build/builds/%d/timeline?api-version=%s", c.baseURL, buildID, c.cfg.APIVersion)

	var tl Timeline
	if err := c.getJSON(ctx, u, &tl); err != nil {
		return nil, fmt.Errorf("failed to get timeline for build %d: %w", buildID, err)
	}
	return &tl, nil
}

// GetLogContent fetches one log of a build as plain text.
func (c *Client) GetLogContent(ctx context.Context, buildID, logID int) (string, error) {
	u := fmt.Sprintf("%s/_apis/build/builds/%d/logs/%d?api-version=%s", c.baseURL, buildID, logID, c.cfg.APIVersion)

	body, err := c.getRaw(ctx, u)
	if err != nil {
		return "", fmt.Errorf("failed to get log %d of build %d: %w", logID, buildID, err)
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	body, err := c.getRaw(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth("", c.cfg.PAT)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Azure DevOps API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure devops API error %d: %s", resp.StatusCode, string(raw))
	}

	return io.ReadAll(resp.Body)
}
