package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// premiumClient fetches a random image for signed-in readers.
type premiumClient struct {
	url    string
	client *http.Client
}

type floofResponse struct {
	Image string `json:"image"`
	Link  string `json:"link"`
}

func (c *premiumClient) RandomImage(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call image api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("image api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload floofResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode image api response: %w", err)
	}
	if payload.Image == "" {
		return "", fmt.Errorf("image api returned no image")
	}
	return payload.Image, nil
}

func (s *Server) handlePremiumPage(w http.ResponseWriter, r *http.Request) {
	info := requestInfo(r)
	if info.Session == nil {
		http.Redirect(w, r, signInURL(localizePath(info.Locale, s.bundle.Default(), "/premium"), ""), http.StatusFound)
		return
	}
	w.Header().Set("Cache-Control", "private, no-store")
	s.render(w, r, http.StatusOK, "premium.gohtml", info.T.Text("common.premium"), nil)
}

func (s *Server) handlePremiumAPI(w http.ResponseWriter, r *http.Request) {
	if requestInfo(r).Session == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	image, err := s.premium.RandomImage(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("premium image")
		writeJSON(w, http.StatusBadGateway, map[string]any{"data": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"data": image})
}
