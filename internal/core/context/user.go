// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID   int64
	Email    string
	Roles    []string
	StoreIDs []int64 // Stores the user works for
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or 0 for anonymous calls.
func GetUserID(ctx context.Context) int64 {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return 0
}

// ActorOr returns explicit when it is set, the authenticated user otherwise.
func ActorOr(ctx context.Context, explicit int64) int64 {
	if explicit != 0 {
		return explicit
	}
	return GetUserID(ctx)
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
