package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/desertthunder/psync/internal/shared"
	"golang.org/x/oauth2"
)

func testGateway(url string) *SpotifyGateway {
	return NewSpotifyGateway(SpotifyGatewayOpts{
		BaseURL:   url,
		RateLimit: 10000, // no pacing in tests
	})
}

func testToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "test-access-token"}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"success", 200, "", nil},
		{"created", 201, "", nil},
		{"not found", 404, "", shared.ErrRemoteNotFound},
		{"unauthorized", 401, "", shared.ErrUnauthorized},
		{"forbidden", 403, `{"error":{"message":"Insufficient client scope"}}`, shared.ErrForbidden},
		{"payload too large", 413, "", shared.ErrPayloadTooLarge},
		{"server error", 500, "", shared.ErrRetryable},
		{"bad gateway", 502, "", shared.ErrRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, []byte(tt.body))
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("forbidden carries reason", func(t *testing.T) {
		err := classifyStatus(403, []byte(`{"error":{"message":"Insufficient client scope"}}`))
		if err == nil || err.Error() != "forbidden: Insufficient client scope" {
			t.Errorf("unexpected error text: %v", err)
		}
	})

	t.Run("other 4xx is terminal, not retryable", func(t *testing.T) {
		err := classifyStatus(429, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, shared.ErrRetryable) {
			t.Error("4xx must not be retryable")
		}
	})
}

func TestFetchSnapshot(t *testing.T) {
	t.Run("paginates tracks in order", func(t *testing.T) {
		const total = 250

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/playlists/pl1":
				json.NewEncoder(w).Encode(map[string]any{
					"id":          "pl1",
					"name":        "Road Trip",
					"description": "Long drives",
					"tracks":      map[string]int{"total": total},
				})
			case "/playlists/pl1/tracks":
				offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				if limit != 100 {
					t.Errorf("expected limit 100, got %d", limit)
				}

				var items []map[string]any
				for i := offset; i < offset+limit && i < total; i++ {
					items = append(items, map[string]any{
						"track": map[string]string{"id": fmt.Sprintf("track-%03d", i)},
					})
				}

				page := map[string]any{"items": items, "total": total}
				if offset+limit < total {
					page["next"] = "has-more"
				}
				json.NewEncoder(w).Encode(page)
			default:
				t.Errorf("unexpected path: %s", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		snap, err := testGateway(server.URL).FetchSnapshot(context.Background(), testToken(), "pl1")
		if err != nil {
			t.Fatalf("failed to fetch snapshot: %v", err)
		}

		if !snap.Exists {
			t.Error("expected snapshot to exist")
		}
		if snap.Name != "Road Trip" || snap.Description != "Long drives" {
			t.Errorf("unexpected metadata: %s / %s", snap.Name, snap.Description)
		}
		if len(snap.TrackExternalIDs) != total {
			t.Fatalf("expected %d tracks, got %d", total, len(snap.TrackExternalIDs))
		}
		for i, id := range snap.TrackExternalIDs {
			if id != fmt.Sprintf("track-%03d", i) {
				t.Fatalf("track order broken at %d: %s", i, id)
			}
		}
	})

	t.Run("deleted remote is a state, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		snap, err := testGateway(server.URL).FetchSnapshot(context.Background(), testToken(), "gone")
		if err != nil {
			t.Fatalf("404 should not be an error: %v", err)
		}
		if snap.Exists {
			t.Error("expected Exists=false")
		}
		if snap.RemoteID != "gone" {
			t.Errorf("expected remote id preserved, got %s", snap.RemoteID)
		}
	})

	t.Run("unauthorized surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := testGateway(server.URL).FetchSnapshot(context.Background(), testToken(), "pl1")
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestReplaceTracks(t *testing.T) {
	t.Run("first page replaces, later pages append", func(t *testing.T) {
		var methods []string
		var received []string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			methods = append(methods, r.Method)

			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			received = append(received, body.URIs...)
		}))
		defer server.Close()

		ids := make([]string, 150)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%03d", i)
		}

		report, err := testGateway(server.URL).ReplaceTracks(context.Background(), testToken(), "pl1", ids)
		if err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		if report.Pages != 2 || report.Applied != 150 || report.Failed() {
			t.Errorf("unexpected report: %+v", report)
		}
		if len(methods) != 2 || methods[0] != http.MethodPut || methods[1] != http.MethodPost {
			t.Errorf("expected PUT then POST, got %v", methods)
		}
		if len(received) != 150 {
			t.Fatalf("expected 150 uris, got %d", len(received))
		}
		for i, uri := range received {
			if uri != "spotify:track:"+ids[i] {
				t.Fatalf("order broken at %d: %s", i, uri)
			}
		}
	})

	t.Run("failed page is recorded, later pages still run", func(t *testing.T) {
		var calls int

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 2 {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		ids := make([]string, 250)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%03d", i)
		}

		report, err := testGateway(server.URL).ReplaceTracks(context.Background(), testToken(), "pl1", ids)
		if err != nil {
			t.Fatalf("page failure should not abort the batch: %v", err)
		}

		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		if !report.Failed() || len(report.Errors) != 1 {
			t.Fatalf("expected one page error, got %+v", report.Errors)
		}
		if report.Errors[0].Page != 1 {
			t.Errorf("expected failure on page 1, got %d", report.Errors[0].Page)
		}
		if report.Applied != 150 {
			t.Errorf("expected 150 applied, got %d", report.Applied)
		}
	})

	t.Run("empty list clears the remote", func(t *testing.T) {
		var method string
		var uris []string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			uris = body.URIs
		}))
		defer server.Close()

		report, err := testGateway(server.URL).ReplaceTracks(context.Background(), testToken(), "pl1", nil)
		if err != nil {
			t.Fatalf("failed to clear tracks: %v", err)
		}
		if method != http.MethodPut || len(uris) != 0 {
			t.Errorf("expected empty PUT, got %s with %v", method, uris)
		}
		if report.Pages != 1 {
			t.Errorf("expected 1 page, got %d", report.Pages)
		}
	})
}

func TestRemoveTracks(t *testing.T) {
	var pages []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}

		var body struct {
			Tracks []struct {
				URI string `json:"uri"`
			} `json:"tracks"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		pages = append(pages, len(body.Tracks))
	}))
	defer server.Close()

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%03d", i)
	}

	report, err := testGateway(server.URL).RemoveTracks(context.Background(), testToken(), "pl1", ids)
	if err != nil {
		t.Fatalf("failed to remove tracks: %v", err)
	}

	if len(pages) != 2 || pages[0] != 100 || pages[1] != 20 {
		t.Errorf("unexpected page sizes: %v", pages)
	}
	if report.Applied != 120 || report.Failed() {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestUploadCoverImage(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	var received string
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/playlists/pl1/images" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		received = string(body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := testGateway(server.URL).UploadCoverImage(context.Background(), testToken(), "pl1", image)
	if err != nil {
		t.Fatalf("failed to upload cover: %v", err)
	}

	if contentType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", contentType)
	}
	if received != base64.StdEncoding.EncodeToString(image) {
		t.Error("body should be base64-encoded image bytes")
	}
}

func TestIsFollowedBy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "acct1" {
			t.Errorf("unexpected ids param: %s", r.URL.Query().Get("ids"))
		}
		json.NewEncoder(w).Encode([]bool{false})
	}))
	defer server.Close()

	followed, err := testGateway(server.URL).IsFollowedBy(context.Background(), testToken(), "pl1", "acct1")
	if err != nil {
		t.Fatalf("failed to check followers: %v", err)
	}
	if followed {
		t.Error("expected not followed")
	}
}

func TestCurrentAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			t.Errorf("missing bearer token")
		}
		json.NewEncoder(w).Encode(SpotifyUser{ID: "user-42", DisplayName: "Tester"})
	}))
	defer server.Close()

	id, err := testGateway(server.URL).CurrentAccount(context.Background(), testToken())
	if err != nil {
		t.Fatalf("failed to fetch account: %v", err)
	}
	if id != "user-42" {
		t.Errorf("expected user-42, got %s", id)
	}
}

func TestCreatePlaylist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/acct1/playlists" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "New Mix" {
			t.Errorf("unexpected name: %v", body["name"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "created-id"})
	}))
	defer server.Close()

	id, err := testGateway(server.URL).CreatePlaylist(context.Background(), testToken(), "acct1", PlaylistMeta{Name: "New Mix"})
	if err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	if id != "created-id" {
		t.Errorf("expected created-id, got %s", id)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	g := testGateway("http://unused.invalid")
	if _, err := g.CurrentAccount(context.Background(), nil); !errors.Is(err, shared.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for nil token, got %v", err)
	}
}
