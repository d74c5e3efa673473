package domain

// JobStatus is the lifecycle state of a job
type JobStatus string

// Job status constants
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// IsTerminal reports whether no further transition is allowed out of s
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// AllowedFrom returns the states a job must be in to move to s.
// The transition table is queued -> running -> {succeeded, failed};
// canceled is reachable from queued or running.
func (s JobStatus) AllowedFrom() []JobStatus {
	switch s {
	case JobStatusRunning:
		return []JobStatus{JobStatusQueued}
	case JobStatusSucceeded, JobStatusFailed:
		return []JobStatus{JobStatusRunning}
	case JobStatusCanceled:
		return []JobStatus{JobStatusQueued, JobStatusRunning}
	}
	return nil
}

// ParseJobStatus validates a job status string
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobStatusQueued, JobStatusRunning, JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return st, nil
	}
	return "", NewValidationError("status", "unknown job status %q", s)
}

// JobType identifies which workflow handles a job
type JobType string

// Job type constants
const (
	JobBootstrapLandingRepo    JobType = "BOOTSTRAP_LANDING_REPO"
	JobDeployLandingRepo       JobType = "DEPLOY_LANDING_REPO"
	JobUpdateLandingCopy       JobType = "UPDATE_LANDING_COPY"
	JobCreateExperimentVariant JobType = "CREATE_EXPERIMENT_VARIANT"
	JobPromoteWinner           JobType = "PROMOTE_WINNER"
)

// JobTypes returns every known job type
func JobTypes() []JobType {
	return []JobType{
		JobBootstrapLandingRepo,
		JobDeployLandingRepo,
		JobUpdateLandingCopy,
		JobCreateExperimentVariant,
		JobPromoteWinner,
	}
}

// ParseJobType validates a job type string
func ParseJobType(s string) (JobType, error) {
	for _, t := range JobTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "type", Message: "unknown job type " + `"` + s + `"`}
}

// Activity levels
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Activity actors
const (
	ActorAgent    = "agent"
	ActorSystem   = "system"
	ActorExternal = "external-automation"
)
