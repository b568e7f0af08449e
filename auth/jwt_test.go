package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: testSecret})

	tests := []struct {
		name    string
		headers http.Header
		want    bool
	}{
		{name: "no authorization header", headers: http.Header{}, want: false},
		{name: "bearer token", headers: bearer("token123"), want: true},
		{name: "wrong prefix", headers: http.Header{"Authorization": {"Basic abc123"}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Supports(tt.headers); got != tt.want {
				t.Errorf("Supports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: testSecret, Issuer: "flushops", Audience: "admin"})
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:  "valid",
			token: signToken(t, testSecret, jwt.MapClaims{"sub": "alice", "iss": "flushops", "aud": "admin", "exp": future, "roles": []string{"operator"}}),
		},
		{
			name:    "expired",
			token:   signToken(t, testSecret, jwt.MapClaims{"sub": "alice", "iss": "flushops", "aud": "admin", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: ErrTokenExpired,
		},
		{
			name:    "wrong issuer",
			token:   signToken(t, testSecret, jwt.MapClaims{"sub": "alice", "iss": "other", "aud": "admin", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "wrong audience",
			token:   signToken(t, testSecret, jwt.MapClaims{"sub": "alice", "iss": "flushops", "aud": "public", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "wrong key",
			token:   signToken(t, []byte("other-secret"), jwt.MapClaims{"sub": "alice", "iss": "flushops", "aud": "admin", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "malformed",
			token:   "not-a-jwt",
			wantErr: ErrTokenMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Authenticate(context.Background(), bearer(tt.token))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if tt.wantErr != nil {
				if result.Authenticated || !errors.Is(result.Err, tt.wantErr) {
					t.Fatalf("result = %+v, want failure %v", result, tt.wantErr)
				}
				return
			}
			if !result.Authenticated {
				t.Fatalf("Authenticate() failed: %v", result.Err)
			}
			id := result.Identity
			if id.Principal != "alice" || !id.HasRole("operator") || id.Method != MethodJWT {
				t.Errorf("Identity = %+v", id)
			}
			if id.ExpiresAt.Unix() != future {
				t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt.Unix(), future)
			}
		})
	}
}

func TestJWTAuthenticator_RolesClaimString(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: testSecret, RolesClaim: "scope"})
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "bob", "scope": "reader operator"})

	result, err := a.Authenticate(context.Background(), bearer(token))
	if err != nil || !result.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", result, err)
	}
	if !result.Identity.HasRole("reader") || !result.Identity.HasRole("operator") {
		t.Errorf("Roles = %v", result.Identity.Roles)
	}
}

func TestJWTAuthenticator_RejectsNoneAlgorithm(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: testSecret})
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "mallory"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	result, err := a.Authenticate(context.Background(), bearer(token))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if result.Authenticated {
		t.Fatal("unsigned token must not authenticate")
	}
}
