package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	sm := NewSessionManager()

	token := sm.Create()
	if token == "" {
		t.Fatal("Create() returned empty token")
	}
	if !sm.Validate(token) {
		t.Error("Validate() rejected a fresh token")
	}

	sm.Delete(token)
	if sm.Validate(token) {
		t.Error("Validate() accepted a deleted token")
	}

	if sm.Validate("") {
		t.Error("Validate() accepted an empty token")
	}
	if sm.Validate("not-a-real-token") {
		t.Error("Validate() accepted an unknown token")
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		pass     string
		expected bool
	}{
		{"correct credentials", "admin", "secret", true},
		{"wrong password", "admin", "wrong", false},
		{"wrong username", "other", "secret", false},
		{"empty credentials", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewSessionManager()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/login", nil)

			if got := sm.Login(w, r, tt.user, tt.pass, "admin", "secret"); got != tt.expected {
				t.Fatalf("Login() = %v, want %v", got, tt.expected)
			}

			cookies := w.Result().Cookies()
			if tt.expected {
				if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value == "" {
					t.Errorf("expected a session cookie, got %v", cookies)
				}
				if !cookies[0].HttpOnly {
					t.Error("session cookie not HttpOnly")
				}
			} else if len(cookies) != 0 {
				t.Errorf("failed login set cookies: %v", cookies)
			}
		})
	}
}

func TestLogoutClearsSession(t *testing.T) {
	sm := NewSessionManager()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	if !sm.Login(w, r, "admin", "secret", "admin", "secret") {
		t.Fatal("Login() failed with correct credentials")
	}
	token := w.Result().Cookies()[0].Value

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	sm.Logout(w, r)

	if sm.Validate(token) {
		t.Error("session still valid after logout")
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("logout did not clear the cookie: %v", cookies)
	}
}

func TestCSRFTokenSingleUse(t *testing.T) {
	sm := NewSessionManager()

	token := sm.CreateCSRFToken()
	if token == "" {
		t.Fatal("CreateCSRFToken() returned empty token")
	}

	if !sm.ValidateCSRFToken(token) {
		t.Error("ValidateCSRFToken() rejected a fresh token")
	}
	if sm.ValidateCSRFToken(token) {
		t.Error("ValidateCSRFToken() accepted a token twice")
	}
	if sm.ValidateCSRFToken("") {
		t.Error("ValidateCSRFToken() accepted an empty token")
	}
}

func TestAuthMiddleware(t *testing.T) {
	sm := NewSessionManager()
	token := sm.Create()

	var reached bool
	handler := sm.AuthMiddleware()(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	t.Run("valid cookie passes", func(t *testing.T) {
		reached = false
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
		handler(w, r)
		if !reached {
			t.Error("authenticated request did not reach the handler")
		}
	})

	t.Run("missing cookie redirects", func(t *testing.T) {
		reached = false
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if reached {
			t.Error("unauthenticated request reached the handler")
		}
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
			t.Errorf("got %d %q, want redirect to /login", w.Code, w.Header().Get("Location"))
		}
	})
}
