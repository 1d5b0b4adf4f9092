package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProviderCredentials and ProviderGitHub name the sign-in providers.
const (
	ProviderCredentials = "credentials"
	ProviderGitHub      = "github"
)

// ErrInvalidCredentials is returned when the verify endpoint rejects a
// password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// CredentialsProvider checks a password against the verify endpoint at
// baseURL.
type CredentialsProvider struct {
	verifyURL string
	client    *http.Client
}

// NewCredentialsProvider targets {baseURL}/api/auth/verify.
func NewCredentialsProvider(baseURL string, client *http.Client) *CredentialsProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CredentialsProvider{
		verifyURL: strings.TrimRight(baseURL, "/") + "/api/auth/verify",
		client:    client,
	}
}

// Authorize returns the user the verify endpoint vouches for.
func (p *CredentialsProvider) Authorize(ctx context.Context, password string) (User, error) {
	if password == "" {
		return User{}, ErrInvalidCredentials
	}

	body, err := json.Marshal(verifyRequest{Password: password})
	if err != nil {
		return User{}, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, bytes.NewReader(body))
	if err != nil {
		return User{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("call verify endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return User{}, ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return User{}, fmt.Errorf("verify endpoint error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode verify response: %w", err)
	}
	if user.ID == "" {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}
