// Package vercel creates projects and deployments on Vercel.
package vercel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuongbtq/launchloop/internal/domain"
)

// DefaultBaseURL is the Vercel REST endpoint
const DefaultBaseURL = "https://api.vercel.com"

// RepoResolver maps a repository reference to the hosting platform's ID
type RepoResolver interface {
	RepoID(ctx context.Context, repo domain.RepoRef) (int64, error)
}

// Config holds Vercel client configuration
type Config struct {
	Token      string
	TeamID     string
	BaseURL    string
	HTTPClient *http.Client
	Repos      RepoResolver
	Logger     *slog.Logger
}

// Client is the deployment adapter
type Client struct {
	token   string
	teamID  string
	baseURL string
	http    *http.Client
	repos   RepoResolver
	logger  *slog.Logger
}

// NewClient creates a new Vercel client
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		token:   cfg.Token,
		teamID:  cfg.TeamID,
		baseURL: strings.TrimRight(base, "/"),
		http:    httpClient,
		repos:   cfg.Repos,
		logger:  cfg.Logger,
	}
}

type gitRepository struct {
	Type string `json:"type"`
	Repo string `json:"repo"`
}

type createProjectRequest struct {
	Name          string        `json:"name"`
	GitRepository gitRepository `json:"gitRepository"`
}

type gitSource struct {
	Type   string `json:"type"`
	Repo   string `json:"repo"`
	RepoID int64  `json:"repoId"`
	Ref    string `json:"ref"`
}

type createDeploymentRequest struct {
	Name      string    `json:"name"`
	GitSource gitSource `json:"gitSource"`
}

// CreateProject links a project to repo. A conflict means the project
// already exists and is returned as {id: name, name: name}.
func (c *Client) CreateProject(ctx context.Context, name string, repo domain.RepoRef) (*domain.DeployProject, error) {
	body := createProjectRequest{
		Name:          name,
		GitRepository: gitRepository{Type: "github", Repo: repo.FullName()},
	}

	var out domain.DeployProject
	status, err := c.do(ctx, "/v9/projects", body, &out, http.StatusConflict)
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		c.logger.Info("Vercel project already exists",
			slog.String("project", name),
		)
		return &domain.DeployProject{ID: name, Name: name}, nil
	}

	c.logger.Info("Vercel project created",
		slog.String("project_id", out.ID),
		slog.String("project", out.Name),
	)
	return &out, nil
}

// CreateDeployment deploys the main branch of repo
func (c *Client) CreateDeployment(ctx context.Context, repo domain.RepoRef) (*domain.Deployment, error) {
	repoID, err := c.repos.RepoID(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo id: %w", err)
	}

	body := createDeploymentRequest{
		Name: repo.Name,
		GitSource: gitSource{
			Type:   "github",
			Repo:   repo.FullName(),
			RepoID: repoID,
			Ref:    "main",
		},
	}

	var out domain.Deployment
	if _, err := c.do(ctx, "/v13/deployments", body, &out); err != nil {
		return nil, err
	}

	c.logger.Info("Vercel deployment created",
		slog.String("deployment_id", out.ID),
		slog.String("url", out.URL),
	)
	return &out, nil
}

// do POSTs body to path and decodes a 2xx response into out. Statuses in
// tolerated are returned without error and without decoding.
func (c *Client) do(ctx context.Context, path string, body, out any, tolerated ...int) (int, error) {
	op := strings.TrimPrefix(path, "/")

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return 0, fmt.Errorf("invalid vercel url: %w", err)
	}
	if c.teamID != "" {
		q := u.Query()
		q.Set("teamId", c.teamID)
		u.RawQuery = q.Encode()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("vercel %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	for _, s := range tolerated {
		if resp.StatusCode == s {
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, &domain.AdapterError{
			Platform:   "vercel",
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(text),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode vercel %s response: %w", op, err)
	}
	return resp.StatusCode, nil
}
