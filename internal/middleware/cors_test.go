package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantCreds  string
		wantStatus int
	}{
		{"explicit origin", []string{"https://a.dev"}, "https://a.dev", http.MethodGet, "https://a.dev", "true", http.StatusOK},
		{"wildcard no credentials", []string{"*"}, "https://b.dev", http.MethodGet, "https://b.dev", "", http.StatusOK},
		{"unknown origin", []string{"https://a.dev"}, "https://evil.dev", http.MethodGet, "", "", http.StatusOK},
		{"preflight", []string{"https://a.dev"}, "https://a.dev", http.MethodOptions, "https://a.dev", "true", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.allowed, "X-Crackd-Session-ID")(next)
			req := httptest.NewRequest(tt.method, "/api/session", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("allow-credentials = %q, want %q", got, tt.wantCreds)
			}
			if tt.wantOrigin != "" {
				if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Crackd-Session-ID" {
					t.Errorf("allow-headers = %q", got)
				}
			}
		})
	}
}
