package auth

import (
	"context"
	"fmt"
	"strings"
)

// Actions on admin resources.
const (
	ActionRead   = "read"
	ActionRemove = "remove"
	ActionClear  = "clear"
)

// Authorizer determines if an identity may perform an action.
type Authorizer interface {
	// Authorize returns nil if permitted, or an *AuthzError.
	Authorize(ctx context.Context, req *AuthzRequest) error
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request.
	Subject *Identity

	// Resource is the target, e.g. "cache:orders" or "policies".
	Resource string

	// Action is the requested action, e.g. "clear".
	Action string
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Subject  string
	Resource string
	Action   string
	Reason   string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %q may not %s %q: %s", e.Subject, e.Action, e.Resource, e.Reason)
}

// Is matches ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// Permission grants Action on resources matching Resource. Either field may
// be "*", and a Resource ending in "*" matches by prefix.
type Permission struct {
	Action   string
	Resource string
}

// ParsePermission parses "<action> <resource>".
func ParsePermission(s string) (Permission, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Permission{}, fmt.Errorf("auth: permission %q must be \"<action> <resource>\"", s)
	}
	return Permission{Action: fields[0], Resource: fields[1]}, nil
}

func (p Permission) permits(req *AuthzRequest) bool {
	return (p.Action == "*" || p.Action == req.Action) && matchPattern(p.Resource, req.Resource)
}

// RBACAuthorizer grants permissions by role.
type RBACAuthorizer struct {
	roles map[string][]Permission
}

// NewRBACAuthorizer creates an authorizer from role permissions.
func NewRBACAuthorizer(roles map[string][]Permission) *RBACAuthorizer {
	copied := make(map[string][]Permission, len(roles))
	for name, perms := range roles {
		copied[name] = append([]Permission(nil), perms...)
	}
	return &RBACAuthorizer{roles: copied}
}

// Authorize permits the request if any of the subject's roles does.
func (a *RBACAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return &AuthzError{Resource: req.Resource, Action: req.Action, Reason: "no identity provided"}
	}
	for _, role := range req.Subject.Roles {
		for _, p := range a.roles[role] {
			if p.permits(req) {
				return nil
			}
		}
	}
	return &AuthzError{
		Subject:  req.Subject.Principal,
		Resource: req.Resource,
		Action:   req.Action,
		Reason:   "no role permits this action",
	}
}

// AllowAll permits every request.
type AllowAll struct{}

// Authorize always returns nil.
func (AllowAll) Authorize(context.Context, *AuthzRequest) error { return nil }

// matchPattern supports "*" and trailing-"*" prefix patterns.
func matchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(value, prefix)
	}
	return pattern == value
}

var (
	_ Authorizer = (*RBACAuthorizer)(nil)
	_ Authorizer = AllowAll{}
)
