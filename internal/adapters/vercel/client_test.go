package vercel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRepos struct {
	id  int64
	err error
}

func (s staticRepos) RepoID(context.Context, domain.RepoRef) (int64, error) {
	return s.id, s.err
}

func newTestClient(t *testing.T, teamID string, repos RepoResolver, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Token:   "vtok",
		TeamID:  teamID,
		BaseURL: srv.URL,
		Repos:   repos,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCreateProject(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      *domain.DeployProject
		wantErr   bool
		errStatus int
	}{
		{
			name:   "created",
			status: http.StatusOK,
			body:   `{"id":"prj_123","name":"acme"}`,
			want:   &domain.DeployProject{ID: "prj_123", Name: "acme"},
		},
		{
			name:   "conflict means it exists",
			status: http.StatusConflict,
			body:   `{"error":{"code":"conflict"}}`,
			want:   &domain.DeployProject{ID: "acme", Name: "acme"},
		},
		{
			name:      "failure",
			status:    http.StatusForbidden,
			body:      `{"error":{"code":"forbidden"}}`,
			wantErr:   true,
			errStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			client := newTestClient(t, "", nil, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v9/projects", r.URL.Path)
				assert.Equal(t, "Bearer vtok", r.Header.Get("Authorization"))
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			project, err := client.CreateProject(context.Background(), "acme", domain.RepoRef{Owner: "acme", Name: "site"})
			if tt.wantErr {
				var ae *domain.AdapterError
				require.True(t, errors.As(err, &ae))
				assert.Equal(t, tt.errStatus, ae.StatusCode)
				assert.Contains(t, ae.Body, "forbidden")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, project)
			assert.Equal(t, "acme", got["name"])
			assert.Equal(t, map[string]any{"type": "github", "repo": "acme/site"}, got["gitRepository"])
		})
	}
}

func TestCreateDeployment(t *testing.T) {
	var got map[string]any
	var query string
	client := newTestClient(t, "team_1", staticRepos{id: 99}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v13/deployments", r.URL.Path)
		query = r.URL.Query().Get("teamId")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"dpl_1","url":"site-abc.vercel.app"}`))
	})

	dep, err := client.CreateDeployment(context.Background(), domain.RepoRef{Owner: "acme", Name: "site"})
	require.NoError(t, err)
	assert.Equal(t, &domain.Deployment{ID: "dpl_1", URL: "site-abc.vercel.app"}, dep)
	assert.Equal(t, "team_1", query)
	assert.Equal(t, "site", got["name"])
	assert.Equal(t, map[string]any{
		"type":   "github",
		"repo":   "acme/site",
		"repoId": float64(99),
		"ref":    "main",
	}, got["gitSource"])
}

func TestCreateDeployment_RepoLookupFails(t *testing.T) {
	called := false
	client := newTestClient(t, "", staticRepos{err: errors.New("lookup failed")}, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.CreateDeployment(context.Background(), domain.RepoRef{Owner: "acme", Name: "site"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup failed")
	assert.False(t, called)
}
