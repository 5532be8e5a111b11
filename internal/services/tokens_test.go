package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
	"golang.org/x/oauth2"
)

// fakeCredentialStore is an in-memory CredentialStore.
type fakeCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*models.Credential
	puts  int
	drops int
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{creds: make(map[string]*models.Credential)}
}

func (s *fakeCredentialStore) Get(accountID string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[accountID]
	if !ok {
		return nil, shared.ErrNotConnected
	}
	copied := models.NewCredential(cred.AccountID(), cred.AccessToken(), cred.RefreshToken(), cred.ExpiresAt())
	return copied, nil
}

func (s *fakeCredentialStore) Put(cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.AccountID()] = cred
	s.puts++
	return nil
}

func (s *fakeCredentialStore) DropTokens(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[accountID]
	if !ok {
		return shared.ErrNotConnected
	}
	cred.DropTokens()
	s.drops++
	return nil
}

func tokenEndpoint(t *testing.T, handler http.HandlerFunc) *oauth2.Config {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: server.URL},
	}
}

func TestObtainValidToken(t *testing.T) {
	t.Run("unknown account is not connected", func(t *testing.T) {
		m := NewTokenManager(newFakeCredentialStore(), &oauth2.Config{}, nil)
		_, err := m.ObtainValidToken(context.Background(), "nobody")
		if !errors.Is(err, shared.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("dropped credential needs reconnect", func(t *testing.T) {
		store := newFakeCredentialStore()
		cred := models.NewCredential("acct1", "", "", time.Time{})
		store.Put(cred)

		m := NewTokenManager(store, &oauth2.Config{}, nil)
		_, err := m.ObtainValidToken(context.Background(), "acct1")
		if !errors.Is(err, shared.ErrNeedsReconnect) {
			t.Errorf("expected ErrNeedsReconnect, got %v", err)
		}
	})

	t.Run("unexpired token is returned without a network call", func(t *testing.T) {
		store := newFakeCredentialStore()
		store.Put(models.NewCredential("acct1", "live-token", "refresh", time.Now().Add(time.Hour)))

		conf := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected refresh call")
		})

		m := NewTokenManager(store, conf, nil)
		token, err := m.ObtainValidToken(context.Background(), "acct1")
		if err != nil {
			t.Fatalf("failed to obtain token: %v", err)
		}
		if token.AccessToken != "live-token" {
			t.Errorf("expected stored token, got %s", token.AccessToken)
		}
	})

	t.Run("expired token refreshes and persists rotation", func(t *testing.T) {
		store := newFakeCredentialStore()
		store.Put(models.NewCredential("acct1", "stale", "old-refresh", time.Now().Add(-time.Hour)))

		conf := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if r.Form.Get("refresh_token") != "old-refresh" {
				t.Errorf("expected stored refresh token, got %s", r.Form.Get("refresh_token"))
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh","refresh_token":"rotated","token_type":"Bearer","expires_in":3600}`))
		})

		m := NewTokenManager(store, conf, nil)
		token, err := m.ObtainValidToken(context.Background(), "acct1")
		if err != nil {
			t.Fatalf("failed to refresh: %v", err)
		}
		if token.AccessToken != "fresh" {
			t.Errorf("expected fresh token, got %s", token.AccessToken)
		}

		stored, _ := store.Get("acct1")
		if stored.AccessToken() != "fresh" || stored.RefreshToken() != "rotated" {
			t.Errorf("rotation not persisted: %s / %s", stored.AccessToken(), stored.RefreshToken())
		}
	})

	t.Run("failed refresh drops tokens", func(t *testing.T) {
		store := newFakeCredentialStore()
		store.Put(models.NewCredential("acct1", "stale", "bad-refresh", time.Now().Add(-time.Hour)))

		conf := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
		})

		m := NewTokenManager(store, conf, nil)
		_, err := m.ObtainValidToken(context.Background(), "acct1")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}

		stored, _ := store.Get("acct1")
		if stored.Connected() {
			t.Error("expected tokens dropped after failed refresh")
		}

		// A later call reports needs-reconnect instead of retrying the refresh.
		_, err = m.ObtainValidToken(context.Background(), "acct1")
		if !errors.Is(err, shared.ErrNeedsReconnect) {
			t.Errorf("expected ErrNeedsReconnect, got %v", err)
		}
	})

	t.Run("missing refresh token drops tokens", func(t *testing.T) {
		store := newFakeCredentialStore()
		store.Put(models.NewCredential("acct1", "stale", "", time.Now().Add(-time.Hour)))

		m := NewTokenManager(store, &oauth2.Config{}, nil)
		_, err := m.ObtainValidToken(context.Background(), "acct1")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if store.drops != 1 {
			t.Errorf("expected tokens dropped once, got %d", store.drops)
		}
	})
}

func TestObtainValidTokenSingleFlight(t *testing.T) {
	store := newFakeCredentialStore()
	store.Put(models.NewCredential("acct1", "stale", "refresh", time.Now().Add(-time.Hour)))

	var refreshes atomic.Int32
	conf := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		time.Sleep(20 * time.Millisecond) // hold the flight open for the group
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","refresh_token":"rotated","token_type":"Bearer","expires_in":3600}`))
	})

	m := NewTokenManager(store, conf, nil)

	const callers = 10
	var wg sync.WaitGroup
	tokens := make([]*oauth2.Token, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.ObtainValidToken(context.Background(), "acct1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if tokens[i].AccessToken != "fresh" {
			t.Errorf("caller %d got %s", i, tokens[i].AccessToken)
		}
	}

	if got := refreshes.Load(); got != 1 {
		t.Errorf("expected exactly one refresh call, got %d", got)
	}
}

func TestVerify(t *testing.T) {
	store := newFakeCredentialStore()
	store.Put(models.NewCredential("acct1", "live", "refresh", time.Now().Add(time.Hour)))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"acct1","display_name":"Tester"}`))
	}))
	defer server.Close()

	m := NewTokenManager(store, &oauth2.Config{}, nil)
	got, err := m.Verify(context.Background(), testGateway(server.URL), "acct1")
	if err != nil {
		t.Fatalf("failed to verify: %v", err)
	}
	if got != "acct1" {
		t.Errorf("expected acct1, got %s", got)
	}
}
