package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func callbackRequest(query url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/callback?"+query.Encode(), nil)
}

func TestOAuthHandler(t *testing.T) {
	t.Run("rejects invalid state", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "expected-state")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, callbackRequest(url.Values{"state": {"wrong"}, "code": {"abc"}}))

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		result := <-h.Result()
		if result.Error() == nil {
			t.Error("expected state validation error")
		}
	})

	t.Run("reports authorization denial", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "s")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, callbackRequest(url.Values{
			"state":             {"s"},
			"error":             {"access_denied"},
			"error_description": {"User denied access"},
		}))

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected denial error, got %v", result.Error())
		}
	})

	t.Run("exchanges code for token", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"exchanged","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
		}))
		defer tokenServer.Close()

		conf := &oauth2.Config{
			ClientID: "client",
			Endpoint: oauth2.Endpoint{TokenURL: tokenServer.URL},
		}
		h := NewOAuthHandler(conf, "s")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, callbackRequest(url.Values{"state": {"s"}, "code": {"auth-code"}}))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "exchanged" || result.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token: %+v", result.Token)
		}
	})

	t.Run("rejects replayed callback", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "s")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, callbackRequest(url.Values{"state": {"wrong"}}))

		second := httptest.NewRecorder()
		h.ServeHTTP(second, callbackRequest(url.Values{"state": {"s"}, "code": {"abc"}}))

		if second.Code != http.StatusBadRequest {
			t.Errorf("expected replay rejection, got %d", second.Code)
		}
	})
}

func TestBasicRouterMiddlewareOrder(t *testing.T) {
	router := NewBasicRouter()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router.Use(mw("outer"), mw("inner"))
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	want := []string{"outer", "inner", "handler"}
	for i, name := range want {
		if i >= len(order) || order[i] != name {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}

	t.Run("method filtering", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})
}
