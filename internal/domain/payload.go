package domain

import (
	"bytes"
	"encoding/json"
)

// BootstrapPayload is the payload of BOOTSTRAP_LANDING_REPO
type BootstrapPayload struct {
	SiteConfig json.RawMessage `json:"siteConfig,omitempty"`
}

// SiteConfigObject returns the site configuration when it is a JSON object.
// Any other value, including null, yields ok == false.
func (p BootstrapPayload) SiteConfigObject() (cfg map[string]any, ok bool) {
	trimmed := bytes.TrimSpace(p.SiteConfig)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	if err := json.Unmarshal(trimmed, &cfg); err != nil {
		return nil, false
	}
	return cfg, true
}

// DeployPayload is the payload of DEPLOY_LANDING_REPO
type DeployPayload struct {
	Repo *RepoRef `json:"repo,omitempty"`
}

// VariantCopy is the proposed copy for variant B
type VariantCopy struct {
	Headline   string `json:"headline"`
	HeroPrompt string `json:"heroPrompt"`
}

// Decision is the opaque result of the decision agent
type Decision struct {
	Decision       string      `json:"decision"`
	ExperimentType string      `json:"experimentType"`
	Hypothesis     string      `json:"hypothesis"`
	VariantB       VariantCopy `json:"variantB"`
	Confidence     float64     `json:"confidence"`
	Explanation    string      `json:"explanation"`
}

// ExperimentPayload is the payload of CREATE_EXPERIMENT_VARIANT
type ExperimentPayload struct {
	Repo        *RepoRef `json:"repo,omitempty"`
	TriggerType string   `json:"triggerType,omitempty"`
	Decision    Decision `json:"decision"`
}

// EmptyPayload is the payload of job types that carry no parameters
type EmptyPayload struct{}

// DecodePayload unmarshals raw into dst. An empty or null payload leaves
// dst at its zero value; unknown fields are ignored.
func DecodePayload(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return &ValidationError{Field: "payload", Message: "malformed payload: " + err.Error()}
	}
	return nil
}
