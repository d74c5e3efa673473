package domain

import "time"

// ExperimentHeadlineHero is the only experiment type
const ExperimentHeadlineHero = "headline-hero"

// Variant is one arm of an experiment
type Variant struct {
	ID           string `json:"id"`
	Headline     string `json:"headline"`
	HeroImageURL string `json:"heroImageUrl"`
}

// Experiment is an A/B test on a project's landing page
type Experiment struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Type      string     `json:"type"`
	Variants  []Variant  `json:"variants"`
	StartAt   time.Time  `json:"startAt"`
	EndAt     *time.Time `json:"endAt,omitempty"`
	Winner    string     `json:"winner,omitempty"`
}
