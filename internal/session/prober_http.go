package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPProber asks a running portal server about session state. TokenSource
// supplies the current bearer token, empty when signed out.
type HTTPProber struct {
	baseURL     string
	client      *http.Client
	tokenSource func() string
}

func NewHTTPProber(baseURL string, tokenSource func() string) *HTTPProber {
	return &HTTPProber{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: 10 * time.Second},
		tokenSource: tokenSource,
	}
}

func (p *HTTPProber) get(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	if token := p.tokenSource(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (p *HTTPProber) AdminRegistered(ctx context.Context) (bool, error) {
	var body struct {
		Registered bool `json:"registered"`
	}
	status, err := p.get(ctx, "/api/v1/auth/registered", &body)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("registered probe: status %d", status)
	}
	return body.Registered, nil
}

func (p *HTTPProber) CurrentProfile(ctx context.Context) (*Profile, error) {
	var body struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		CenterID *int64 `json:"center_id"`
	}
	status, err := p.get(ctx, "/api/v1/auth/session", &body)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, ErrUnauthenticated
	default:
		return nil, fmt.Errorf("session probe: status %d", status)
	}

	prof := &Profile{Name: body.Name, Email: body.Email, Role: body.Role, CenterID: body.CenterID}
	if err := prof.ID.UnmarshalText([]byte(body.ID)); err != nil {
		return nil, fmt.Errorf("session probe: bad profile id: %w", err)
	}
	return prof, nil
}
