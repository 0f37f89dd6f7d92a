// Package credential supplies store credentials at connection time.
package credential

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/festy23/dora_collector/internal/apperr"
	"github.com/festy23/dora_collector/internal/database/config"
)

// Source yields the secret used to open a store connection.
type Source interface {
	Credential(ctx context.Context) (string, error)
}

// Static is a fixed password.
type Static string

// Credential returns the password.
func (s Static) Credential(context.Context) (string, error) {
	if s == "" {
		return "", apperr.Errorf(apperr.ErrAuth, "static credential", "password is empty")
	}
	return string(s), nil
}

// File reads a rotating access token from disk on every call.
type File struct {
	Path string
}

// Credential returns the current file contents with surrounding whitespace removed.
func (f File) Credential(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Wrap(apperr.ErrAuth, "file credential", err)
	}
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrAuth, "file credential", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", apperr.Wrap(apperr.ErrAuth, "file credential", errors.New("token file is empty"))
	}
	return token, nil
}

// FromConfig picks the credential source configured for the store.
func FromConfig(cfg config.Config) Source {
	if cfg.TokenFile != "" {
		return File{Path: cfg.TokenFile}
	}
	return Static(cfg.Password)
}
