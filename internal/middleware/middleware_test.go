package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewAuthMiddleware([]byte("test-secret"), time.Hour)
	token, err := m.Issue(42, "miner")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	s, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if s.UserID != 42 || s.Username != "miner" {
		t.Errorf("Verify() = %+v", s)
	}
}

func TestVerifyRejects(t *testing.T) {
	m := NewAuthMiddleware([]byte("test-secret"), time.Hour)
	good, _ := m.Issue(1, "miner")

	expired := NewAuthMiddleware([]byte("test-secret"), time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue(1, "miner")

	other, _ := NewAuthMiddleware([]byte("other-secret"), time.Hour).Issue(1, "miner")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", old},
		{"wrong secret", other},
		{"alg none", none},
		{"tampered", good + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); err == nil {
				t.Error("Verify() accepted the token")
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware([]byte("test-secret"), time.Hour)
	token, _ := m.Issue(7, "miner")

	var got Session
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFrom(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/emissions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(rr.Body.String(), `"error"`) {
				t.Errorf("body = %q, want JSON error", rr.Body.String())
			}
		})
	}
	if got.UserID != 7 {
		t.Errorf("session user = %d, want 7", got.UserID)
	}
}

func TestZapRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := ZapRequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("ok"))
		}
	}))

	for _, p := range []string{"/ok", "/missing", "/boom"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("logged %d entries, want 3", len(entries))
	}
	want := []string{"info", "warn", "error"}
	for i, e := range entries {
		if e.Level.String() != want[i] {
			t.Errorf("entry %d level = %s, want %s", i, e.Level, want[i])
		}
		if e.ContextMap()["path"] == "" {
			t.Errorf("entry %d missing path", i)
		}
	}
	if entries[0].ContextMap()["status"] != int64(200) {
		t.Errorf("status field = %v, want 200", entries[0].ContextMap()["status"])
	}
}
