package auth

import (
	"context"
	"errors"
	"testing"
)

func TestRBACAuthorizer(t *testing.T) {
	authz := NewRBACAuthorizer(map[string][]Permission{
		"reader":   {{Action: ActionRead, Resource: "*"}},
		"operator": {{Action: "*", Resource: "cache:*"}},
		"orders":   {{Action: ActionRemove, Resource: "cache:orders"}},
	})

	tests := []struct {
		name     string
		roles    []string
		action   string
		resource string
		allowed  bool
	}{
		{name: "reader reads policies", roles: []string{"reader"}, action: ActionRead, resource: "policies", allowed: true},
		{name: "reader cannot clear", roles: []string{"reader"}, action: ActionClear, resource: "cache:orders"},
		{name: "operator clears any cache", roles: []string{"operator"}, action: ActionClear, resource: "cache:sessions", allowed: true},
		{name: "operator prefix does not cover policies", roles: []string{"operator"}, action: ActionRead, resource: "policies"},
		{name: "scoped remove", roles: []string{"orders"}, action: ActionRemove, resource: "cache:orders", allowed: true},
		{name: "scoped remove other cache", roles: []string{"orders"}, action: ActionRemove, resource: "cache:sessions"},
		{name: "second role grants", roles: []string{"unknown", "orders"}, action: ActionRemove, resource: "cache:orders", allowed: true},
		{name: "no roles", action: ActionRead, resource: "policies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Authorize(context.Background(), &AuthzRequest{
				Subject:  &Identity{Principal: "p", Roles: tt.roles},
				Resource: tt.resource,
				Action:   tt.action,
			})
			if tt.allowed && err != nil {
				t.Fatalf("Authorize() error = %v, want nil", err)
			}
			if !tt.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("Authorize() error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestRBACAuthorizer_NoSubject(t *testing.T) {
	authz := NewRBACAuthorizer(nil)
	err := authz.Authorize(context.Background(), &AuthzRequest{Resource: "policies", Action: ActionRead})

	var azErr *AuthzError
	if !errors.As(err, &azErr) {
		t.Fatalf("Authorize() error = %T, want *AuthzError", err)
	}
	if azErr.Reason != "no identity provided" {
		t.Errorf("Reason = %q", azErr.Reason)
	}
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("clear cache:*")
	if err != nil {
		t.Fatalf("ParsePermission() error = %v", err)
	}
	if p != (Permission{Action: ActionClear, Resource: "cache:*"}) {
		t.Errorf("ParsePermission() = %+v", p)
	}

	for _, bad := range []string{"", "clear", "clear cache:* extra"} {
		if _, err := ParsePermission(bad); err == nil {
			t.Errorf("ParsePermission(%q) expected error", bad)
		}
	}
}

func TestAuthzError_Error(t *testing.T) {
	err := &AuthzError{Subject: "alice", Resource: "cache:orders", Action: ActionClear, Reason: "no role permits this action"}
	want := `auth: "alice" may not clear "cache:orders": no role permits this action`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAllowAll(t *testing.T) {
	if err := (AllowAll{}).Authorize(context.Background(), &AuthzRequest{}); err != nil {
		t.Errorf("Authorize() error = %v", err)
	}
}
