package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func newProtectedHandler(t *testing.T) http.Handler {
	t.Helper()
	store := NewMemoryAPIKeyStore()
	_ = store.Add(APIKey{ID: "reader", Hash: HashAPIKey("key-reader"), Roles: []string{"reader"}})
	_ = store.Add(APIKey{ID: "ops", Hash: HashAPIKey("key-ops"), Roles: []string{"operator"}})

	authn := Composite{
		NewAPIKeyAuthenticator("", store),
		NewJWTAuthenticator(JWTConfig{Secret: testSecret}),
	}
	authz := NewRBACAuthorizer(map[string][]Permission{
		"reader":   {{Action: ActionRead, Resource: "*"}},
		"operator": {{Action: "*", Resource: "*"}},
	})

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(IdentityFromContext(r.Context()).Principal))
	})
	requireClear := Require(authz, ActionClear, func(*http.Request) string { return "cache:orders" })
	return Middleware(authn, nil)(requireClear(final))
}

func TestMiddleware(t *testing.T) {
	h := newProtectedHandler(t)
	opsToken := signToken(t, testSecret, jwt.MapClaims{"sub": "alice", "roles": []string{"operator"}})

	tests := []struct {
		name     string
		headers  http.Header
		want     int
		wantBody string
	}{
		{name: "no credentials", headers: http.Header{}, want: http.StatusUnauthorized},
		{name: "bad api key", headers: http.Header{"X-Api-Key": {"nope"}}, want: http.StatusUnauthorized},
		{name: "reader forbidden", headers: http.Header{"X-Api-Key": {"key-reader"}}, want: http.StatusForbidden},
		{name: "operator api key", headers: http.Header{"X-Api-Key": {"key-ops"}}, want: http.StatusOK, wantBody: "ops"},
		{name: "operator jwt", headers: bearer(opsToken), want: http.StatusOK, wantBody: "alice"},
		{name: "bad jwt", headers: bearer("garbage"), want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/caches/orders/clear", nil)
			req.Header = tt.headers
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.want != http.StatusOK && rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("error Content-Type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestIdentityFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := IdentityFromContext(req.Context()); id != nil {
		t.Errorf("IdentityFromContext() = %+v, want nil", id)
	}
}
