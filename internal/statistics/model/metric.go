// Package model provides the derived statistics of the statistics module.
package model

import "time"

// DailyMetric counts one UTC day of deployments for a repository and environment.
// Matches the deployment_metrics_daily table schema.
type DailyMetric struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement;column:id"                                                      json:"-"`
	Date                  time.Time `gorm:"column:date;type:date;not null;uniqueIndex:uq_deployment_metrics_daily,priority:1"       json:"date"`
	Repository            string    `gorm:"column:repository;size:255;not null;uniqueIndex:uq_deployment_metrics_daily,priority:2"  json:"repository"`
	Environment           string    `gorm:"column:environment;size:255;not null;uniqueIndex:uq_deployment_metrics_daily,priority:3" json:"environment"`
	TotalDeployments      int       `gorm:"column:total_deployments;not null"                                                       json:"total_deployments"`
	SuccessfulDeployments int       `gorm:"column:successful_deployments;not null"                                                  json:"successful_deployments"`
	FailedDeployments     int       `gorm:"column:failed_deployments;not null"                                                      json:"failed_deployments"`
	CalculatedAt          time.Time `gorm:"column:calculated_at;not null"                                                           json:"calculated_at"`
}

// TableName specifies the table name for GORM.
func (DailyMetric) TableName() string {
	return "deployment_metrics_daily"
}

// Group identifies one row of deployment_metrics_daily.
type Group struct {
	Date        time.Time
	Repository  string
	Environment string
}

// Day truncates t to midnight of its UTC date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
