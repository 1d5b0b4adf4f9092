package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserURL = "https://api.github.com/user"

// GitHubProvider runs the OAuth authorization-code flow against GitHub.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider returns nil when clientID is empty, which disables the
// provider.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	if clientID == "" {
		return nil
	}
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
		},
		userURL: githubUserURL,
	}
}

// WithEndpoints points the provider at other URLs, as used in tests.
func (p *GitHubProvider) WithEndpoints(endpoint oauth2.Endpoint, userURL string) *GitHubProvider {
	cfg := *p.config
	cfg.Endpoint = endpoint
	return &GitHubProvider{config: &cfg, userURL: userURL}
}

// AuthCodeURL is where the browser goes to grant access.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Exchange trades code for a token and loads the GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (User, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return User{}, fmt.Errorf("exchange github code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return User{}, fmt.Errorf("build github user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return User{}, fmt.Errorf("load github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return User{}, fmt.Errorf("github user error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var gh githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return User{}, fmt.Errorf("decode github user: %w", err)
	}

	name := gh.Name
	if name == "" {
		name = gh.Login
	}
	return User{ID: strconv.FormatInt(gh.ID, 10), Name: name, Email: gh.Email, Image: gh.AvatarURL}, nil
}
