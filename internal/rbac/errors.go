package rbac

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrMalformedRole          = errors.New("malformed role")
)

// AuthError is a denied authorization. Permission is kept for logs only;
// PublicMessage never reveals it.
type AuthError struct {
	Kind       error
	Permission Permission
	Role       Role
}

func (e *AuthError) Error() string {
	if e.Permission == "" {
		return fmt.Sprintf("%v (role %q)", e.Kind, e.Role)
	}
	return fmt.Sprintf("%v: %s (role %q)", e.Kind, e.Permission, e.Role)
}

func (e *AuthError) Unwrap() error {
	return e.Kind
}

func (e *AuthError) PublicMessage() string {
	if errors.Is(e.Kind, ErrUnauthenticated) {
		return "authentication required"
	}
	return "you do not have permission to perform this action"
}

func unauthenticated(p Permission) error {
	return &AuthError{Kind: ErrUnauthenticated, Permission: p, Role: RoleGuest}
}

func denied(p Permission, role Role) error {
	return &AuthError{Kind: ErrInsufficientPermission, Permission: p, Role: role}
}
