package model

import "time"

const (
	// StatusPending is stored for deployments the source reports no status for.
	StatusPending = "pending"
	// StatusSuccess counts as a successful deployment.
	StatusSuccess = "SUCCESS"
	// StatusFailure and StatusError count as failed deployments.
	StatusFailure = "FAILURE"
	StatusError   = "ERROR"

	// UnknownActor replaces a missing creator.
	UnknownActor = "unknown"
)

// Deployment is a recorded release of a commit to an environment.
// Matches the deployments table schema.
type Deployment struct {
	ID              int64      `gorm:"primaryKey;autoIncrement;column:id"                                              json:"-"`
	DeploymentID    string     `gorm:"column:deployment_id;size:255;not null;uniqueIndex:uq_deployments_deployment_id" json:"deployment_id"`
	Repository      string     `gorm:"column:repository;size:255;not null;index:idx_deployments_repository"            json:"repository"`
	Environment     string     `gorm:"column:environment;size:255;not null"                                            json:"environment"`
	CommitSHA       string     `gorm:"column:commit_sha;size:64;not null;index:idx_deployments_commit_sha"             json:"commit_sha"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null;index:idx_deployments_created_at"                     json:"created_at"`
	Creator         string     `gorm:"column:creator;size:255;not null"                                                json:"creator"`
	Status          string     `gorm:"column:status;size:64;not null"                                                  json:"status"`
	StatusUpdatedAt *time.Time `gorm:"column:status_updated_at"                                                        json:"status_updated_at,omitempty"`
	CollectedAt     time.Time  `gorm:"column:collected_at;not null;index:idx_deployments_collected_at"                 json:"collected_at"`
}

// TableName specifies the table name for GORM.
func (Deployment) TableName() string {
	return "deployments"
}

// IsSuccessful reports whether the status counts as a successful deployment.
func (d Deployment) IsSuccessful() bool {
	return d.Status == StatusSuccess
}

// IsFailed reports whether the status counts as a failed deployment.
func (d Deployment) IsFailed() bool {
	return d.Status == StatusFailure || d.Status == StatusError
}
