// Package common holds the per-scenario state shared by step packages and
// the generic request and assertion steps.
package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config points the suite at a running server.
type Config struct {
	BaseURL       string
	Administrator string
	SigningKey    string
	Issuer        string
}

// ConfigFromEnv reads E2E_* variables, defaulting to a local dev server.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:       env("E2E_BASE_URL", "http://localhost:8080"),
		Administrator: env("E2E_ADMIN_IDENTITY", "0xadmin"),
		SigningKey:    env("E2E_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:        env("E2E_JWT_ISSUER", "travelcred"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// World is reset for every scenario.
type World struct {
	Config Config
	Client *http.Client

	Holder     string
	PassportID uint64
	VisaID     uint64

	LastStatus int
	LastBody   []byte
}

func NewWorld(cfg Config) *World {
	return &World{Config: cfg, Client: &http.Client{Timeout: 10 * time.Second}}
}

// Token mints a bearer token for subject with the server's signing key.
func (w *World) Token(subject string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    w.Config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}).SignedString([]byte(w.Config.SigningKey))
}

// Do sends a request as caller, or anonymously when caller is empty, and
// records the response.
func (w *World) Do(method, path, caller string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, w.Config.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := w.Token(caller)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	w.LastStatus = resp.StatusCode
	w.LastBody, err = io.ReadAll(resp.Body)
	return err
}

// Decode unmarshals the last response body into v.
func (w *World) Decode(v any) error {
	if err := json.Unmarshal(w.LastBody, v); err != nil {
		return fmt.Errorf("decode %q: %w", w.LastBody, err)
	}
	return nil
}
