package shared

import "context"

type userContextKey struct{}

// ContextWithUser stores the acting user identifier in context.
func ContextWithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the acting user identifier from context.
// Returns "system" when no user was attached.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userContextKey{}).(string)
	if user == "" {
		return "system"
	}
	return user
}
