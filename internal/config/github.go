package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// DeploymentWindow is the fixed age limit for collected deployments.
const DeploymentWindow = 24 * time.Hour

// GitHubConfig holds the source API settings.
type GitHubConfig struct {
	// Org is the organization whose repositories are harvested.
	Org string
	// AppID, InstallationID and PrivateKey identify the GitHub App installation.
	AppID          string
	InstallationID string
	// PrivateKey is the PEM key as configured; it may be base64-encoded.
	PrivateKey string
	// APIURL is the REST/GraphQL API root.
	APIURL string
	// Environments restricts collected deployments; empty means every environment.
	Environments []string
	// BaseBranch is the branch merged pull requests must target.
	BaseBranch       string
	PRLookback       time.Duration
	IncidentLookback time.Duration
	// RequestTimeout is the connect/read deadline of a single outbound call.
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// LoadGitHubConfigFromEnv loads source API configuration from environment variables.
func LoadGitHubConfigFromEnv() GitHubConfig {
	return GitHubConfig{
		Org:               GetEnv("GITHUB_ORG_NAME", ""),
		AppID:             GetEnv("GITHUB_APP_ID", ""),
		InstallationID:    GetEnv("GITHUB_APP_INSTALLATION_ID", ""),
		PrivateKey:        GetEnv("GITHUB_APP_PRIVATE_KEY", ""),
		APIURL:            strings.TrimSuffix(GetEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
		Environments:      GetEnvList("GITHUB_DEPLOYMENT_ENVIRONMENTS"),
		BaseBranch:        GetEnv("BASE_BRANCH", "main"),
		PRLookback:        time.Duration(GetEnvInt("PR_LOOKBACK_HOURS", 48)) * time.Hour,
		IncidentLookback:  time.Duration(GetEnvInt("INCIDENT_LOOKBACK_HOURS", 24)) * time.Hour,
		RequestTimeout:    GetEnvDuration("GITHUB_REQUEST_TIMEOUT", 30*time.Second),
		RequestsPerSecond: GetEnvFloat("GITHUB_REQUESTS_PER_SECOND", 10),
	}
}

// Validate reports the first missing or invalid setting.
func (c GitHubConfig) Validate() error {
	required := []struct {
		key, value string
	}{
		{"GITHUB_ORG_NAME", c.Org},
		{"GITHUB_APP_ID", c.AppID},
		{"GITHUB_APP_INSTALLATION_ID", c.InstallationID},
		{"GITHUB_APP_PRIVATE_KEY", c.PrivateKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s must be set", r.key)
		}
	}

	if c.BaseBranch == "" {
		return fmt.Errorf("BASE_BRANCH must not be empty")
	}
	if c.PRLookback <= 0 {
		return fmt.Errorf("PR_LOOKBACK_HOURS must be greater than 0")
	}
	if c.IncidentLookback <= 0 {
		return fmt.Errorf("INCIDENT_LOOKBACK_HOURS must be greater than 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("GITHUB_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("GITHUB_REQUESTS_PER_SECOND must be greater than 0")
	}
	if _, err := c.PrivateKeyPEM(); err != nil {
		return err
	}
	return nil
}

// PrivateKeyPEM returns the app private key as PEM bytes, decoding base64 when needed.
func (c GitHubConfig) PrivateKeyPEM() ([]byte, error) {
	key := strings.TrimSpace(c.PrivateKey)
	if strings.HasPrefix(key, "-----BEGIN") {
		return []byte(key), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("GITHUB_APP_PRIVATE_KEY is neither PEM nor base64: %w", err)
	}
	return decoded, nil
}
