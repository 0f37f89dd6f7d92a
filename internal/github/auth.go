package github

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/festy23/dora_collector/internal/apperr"
	"github.com/festy23/dora_collector/internal/config"
)

// TokenSource yields a bearer token for source API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AppTokenSource exchanges a GitHub App JWT for an installation access token.
type AppTokenSource struct {
	client         *Client
	appID          string
	installationID int64
	privateKey     *rsa.PrivateKey
	now            func() time.Time
}

// NewAppTokenSource creates an AppTokenSource. An undecodable private key or a
// non-numeric installation id is a configuration error.
func NewAppTokenSource(client *Client, cfg config.GitHubConfig) (*AppTokenSource, error) {
	const op = "app token source"

	pemKey, err := cfg.PrivateKeyPEM()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfig, op, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfig, op, fmt.Errorf("parse app private key: %w", err))
	}
	installationID, err := strconv.ParseInt(cfg.InstallationID, 10, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfig, op, fmt.Errorf("installation id %q: %w", cfg.InstallationID, err))
	}

	return &AppTokenSource{
		client:         client,
		appID:          cfg.AppID,
		installationID: installationID,
		privateKey:     key,
		now:            time.Now,
	}, nil
}

// appJWT signs the short-lived app assertion.
func (s *AppTokenSource) appJWT() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    s.appID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}

// Token returns a fresh installation access token.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	const op = "installation token"

	assertion, err := s.appJWT()
	if err != nil {
		return "", apperr.Wrap(apperr.ErrAuth, op, err)
	}

	token, resp, err := s.client.restClient(assertion).Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrAuth, op, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", apperr.Wrap(apperr.ErrAuth, op, fmt.Errorf("github api returned %d, want %d", resp.StatusCode, http.StatusCreated))
	}
	if token.GetToken() == "" {
		return "", apperr.Wrap(apperr.ErrAuth, op, errors.New("token response carried no token"))
	}

	s.client.logger.Debugw("installation token acquired", "expires_at", token.GetExpiresAt().Time)
	return token.GetToken(), nil
}
