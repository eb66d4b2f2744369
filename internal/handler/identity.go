package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/auth"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/policy"
)

// UserLookup resolves a user's email for grant checks.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Identity works out who is calling.
//
// With sessions enabled the authenticated user is the caller, and a user id
// named in the body or query must be that same user. Without sessions
// (development mode) the named user id is trusted as-is.
type Identity struct {
	sessions bool
	users    UserLookup
}

func NewIdentity(sessions bool, users UserLookup) *Identity {
	return &Identity{sessions: sessions, users: users}
}

// Viewer returns the caller as a policy.Viewer. claimed is the user id the
// request names, if any. Callers without an identity are Anonymous.
func (id *Identity) Viewer(r *http.Request, claimed string) (policy.Viewer, error) {
	userID := claimed
	if id.sessions {
		sessionID, ok := auth.UserIDFromContext(r.Context())
		switch {
		case !ok && claimed != "":
			return policy.Anonymous(), apperror.Unauthorized("sign in to act as a user")
		case ok && claimed != "" && claimed != sessionID:
			return policy.Anonymous(), apperror.Forbidden("userId does not match the signed-in user")
		}
		userID = sessionID
	}
	if userID == "" {
		return policy.Anonymous(), nil
	}

	user, err := id.users.GetUserByID(r.Context(), userID)
	switch {
	case err == nil:
		return policy.User(user.ID, user.Email), nil
	case apperror.IsNotFound(err) && id.sessions:
		return policy.Anonymous(), apperror.Unauthorized("the signed-in account no longer exists")
	case apperror.IsNotFound(err):
		return policy.Owner(userID), nil
	default:
		return policy.Anonymous(), err
	}
}

// RequireUser is Viewer for endpoints that act on behalf of a user.
func (id *Identity) RequireUser(r *http.Request, claimed string) (policy.Viewer, error) {
	v, err := id.Viewer(r, claimed)
	if err != nil {
		return v, err
	}
	if v.UserID == "" {
		if id.sessions {
			return v, apperror.Unauthorized("authentication required")
		}
		return v, apperror.ValidationFailed("userId", "userId is required")
	}
	return v, nil
}

// present hides the share token from everyone but the owner; grantees and
// link holders reach the memory without needing it.
func present(m *model.Memory, v policy.Viewer) *model.Memory {
	if policy.IsOwner(m, v) {
		return m
	}
	out := *m
	out.ShareToken = ""
	return &out
}

func presentAll(ms []model.Memory, v policy.Viewer) []model.Memory {
	out := make([]model.Memory, len(ms))
	for i := range ms {
		out[i] = *present(&ms[i], v)
	}
	return out
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
