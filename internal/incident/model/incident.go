package model

import "time"

// UnknownActor replaces a missing issue author.
const UnknownActor = "unknown"

// Incident is a production incident reported as an issue.
// Matches the incidents table schema.
type Incident struct {
	ID          int64      `gorm:"primaryKey;autoIncrement;column:id"                                                                                                             json:"-"`
	Repository  string     `gorm:"column:repository;size:255;not null;uniqueIndex:uq_incidents_repository_number,priority:1;index:idx_incidents_repository_created_at,priority:1" json:"repository"`
	IssueNumber int        `gorm:"column:issue_number;not null;uniqueIndex:uq_incidents_repository_number,priority:2"                                                             json:"issue_number"`
	Title       string     `gorm:"column:title;not null"                                                                                                                          json:"title"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;index:idx_incidents_repository_created_at,priority:2"                                                                json:"created_at"`
	ClosedAt    *time.Time `gorm:"column:closed_at"                                                                                                                               json:"closed_at,omitempty"`
	State       string     `gorm:"column:state;size:32;not null"                                                                                                                  json:"state"`
	Labels      string     `gorm:"column:labels;not null"                                                                                                                         json:"labels"`
	Product     *string    `gorm:"column:product;size:255"                                                                                                                        json:"product,omitempty"`
	Creator     string     `gorm:"column:creator;size:255;not null"                                                                                                               json:"creator"`
	URL         string     `gorm:"column:url;not null"                                                                                                                            json:"url"`
	CollectedAt time.Time  `gorm:"column:collected_at;not null;index:idx_incidents_collected_at"                                                                                  json:"collected_at"`
}

// TableName specifies the table name for GORM.
func (Incident) TableName() string {
	return "incidents"
}
