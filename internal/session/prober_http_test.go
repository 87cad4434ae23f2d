package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestHTTPProber(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/registered":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"registered":true}`))
		case "/api/v1/auth/session":
			if r.Header.Get("Authorization") != "Bearer good-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"` + userID.String() + `","name":"Lead","email":"lead@example.org","role":"admin"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	token := ""
	prober := NewHTTPProber(srv.URL, func() string { return token })
	ctx := context.Background()

	registered, err := prober.AdminRegistered(ctx)
	if err != nil {
		t.Fatalf("AdminRegistered: %v", err)
	}
	if !registered {
		t.Error("expected registered=true")
	}

	if _, err := prober.CurrentProfile(ctx); err != ErrUnauthenticated {
		t.Errorf("no token = %v, want ErrUnauthenticated", err)
	}

	token = "good-token"
	p, err := prober.CurrentProfile(ctx)
	if err != nil {
		t.Fatalf("CurrentProfile: %v", err)
	}
	if p.ID != userID || p.Role != "admin" {
		t.Errorf("profile = %+v", p)
	}

	// End to end through the gate.
	g := NewGate(prober)
	if err := g.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if g.State() != StateAuthenticated {
		t.Errorf("state = %v, want authenticated", g.State())
	}
	token = ""
	if err := g.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if g.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", g.State())
	}
}
