package auth

import (
	"context"

	"github.com/sorenhale/chorebank/internal/model"
)

type contextKey struct{}

// Identity is the authenticated caller, extracted from the bearer token.
type Identity struct {
	UserID   int64
	FamilyID int64
	Role     string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.UserID
}

func FamilyID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.FamilyID
}

func IsParent(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == model.RoleParent
}

// CanActOn is the single ownership gate: parents may act on any user,
// everyone may act on themselves.
func CanActOn(ctx context.Context, targetUserID int64) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == model.RoleParent || id.UserID == targetUserID
}
