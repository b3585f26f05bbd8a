package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxDisplayName
	ctxRole
)

// Actor is the authenticated caller as seen by downstream layers.
type Actor struct {
	ID   string
	Name string
	Role string
}

func WithIdentity(ctx context.Context, userID, name, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxDisplayName, name)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

// DisplayName returns the actor's name, or "" when the token carried none.
func DisplayName(ctx context.Context) string {
	s, _ := ctx.Value(ctxDisplayName).(string)
	return s
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}

// ActorFrom collects the identity stored by WithIdentity.
// ok is false when no user id is present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	id, err := UserID(ctx)
	if err != nil {
		return Actor{}, false
	}
	role, _ := Role(ctx)
	return Actor{ID: id, Name: DisplayName(ctx), Role: role}, true
}
