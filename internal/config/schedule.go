package config

import "fmt"

// DefaultSchedule fires every five minutes (seconds field first).
const DefaultSchedule = "0 */5 * * * *"

// ScheduleConfig holds the cron expression of every pipeline.
type ScheduleConfig struct {
	Deployments  string
	PullRequests string
	Incidents    string
	// RunOnStart fires every pipeline once when the scheduler starts.
	RunOnStart bool
}

// LoadScheduleConfigFromEnv loads pipeline schedules from environment variables.
func LoadScheduleConfigFromEnv() ScheduleConfig {
	return ScheduleConfig{
		Deployments:  GetEnv("DEPLOYMENT_SCHEDULE", DefaultSchedule),
		PullRequests: GetEnv("PULL_REQUEST_SCHEDULE", DefaultSchedule),
		Incidents:    GetEnv("INCIDENT_SCHEDULE", DefaultSchedule),
		RunOnStart:   GetEnvBool("RUN_ON_START", false),
	}
}

// Validate checks that every pipeline has a schedule. Expressions are parsed by the scheduler.
func (c ScheduleConfig) Validate() error {
	if c.Deployments == "" || c.PullRequests == "" || c.Incidents == "" {
		return fmt.Errorf("every pipeline schedule must be set")
	}
	return nil
}
