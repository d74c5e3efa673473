package domain

import "time"

// Funnel archetypes
const (
	FunnelSingleCTA  = "single-cta"
	FunnelStory      = "story"
	FunnelComparison = "comparison"
)

// Project modes and statuses
const (
	ProjectModeFullAgent     = "full-agent"
	ProjectModeRecommendOnly = "recommend-only"

	ProjectStatusBuilding       = "building"
	ProjectStatusLive           = "live"
	ProjectStatusMonitoring     = "monitoring"
	ProjectStatusNeedsAttention = "needs-attention"
)

// Brief is the product profile a landing page is generated from
type Brief struct {
	Product     string `json:"product"`
	Description string `json:"description"`
	ICP         string `json:"icp"`
	PrimaryCTA  string `json:"primaryCTA"`
	BrandVibe   string `json:"brandVibe"`
	Notes       string `json:"notes,omitempty"`
}

// RepoRef points at a hosted repository
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Valid reports whether both owner and name are set
func (r *RepoRef) Valid() bool {
	return r != nil && r.Owner != "" && r.Name != ""
}

// FullName returns owner/name
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// Project is a landing-page project
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Brief           Brief     `json:"brief"`
	FunnelArchetype string    `json:"funnelArchetype"`
	Repo            *RepoRef  `json:"repo,omitempty"`
	Mode            string    `json:"mode"`
	Status          string    `json:"status"`
	DemoMode        bool      `json:"demoMode"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewProject holds the fields supplied when creating a project
type NewProject struct {
	Name            string
	Brief           Brief
	FunnelArchetype string
}

// RemoteRepo is a repository created on the hosting platform
type RemoteRepo struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	CloneURL string `json:"cloneUrl"`
}

// Ref returns the owner/name reference of r
func (r RemoteRepo) Ref() RepoRef {
	return RepoRef{Owner: r.Owner, Name: r.Name}
}

// DeployProject is a project on the deployment platform
type DeployProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Deployment is a triggered deployment
type Deployment struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
