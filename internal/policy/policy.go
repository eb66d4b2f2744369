// Package policy decides who may read or edit a memory.
//
// The decision is a pure function of the memory, the viewer and the memory's
// share grants; callers fetch the grants and pass them in. Keeping it free of
// I/O means every route applies exactly the same rule and the rule itself can
// be tested exhaustively.
package policy

import (
	"strings"

	"github.com/sakif/memory-journal/internal/model"
)

// Viewer is whoever is asking. Any combination of fields may be set: a
// signed-in user has an ID and an email, a visitor following a link has only a
// token, and the zero Viewer is anonymous.
type Viewer struct {
	UserID string
	Email  string
	Token  string
}

func Owner(userID string) Viewer        { return Viewer{UserID: userID} }
func TokenHolder(token string) Viewer   { return Viewer{Token: token} }
func EmailIdentity(email string) Viewer { return Viewer{Email: email} }
func Anonymous() Viewer                 { return Viewer{} }

// User is a signed-in account: the owner of their own memories and an email
// identity for everyone else's.
func User(userID, email string) Viewer { return Viewer{UserID: userID, Email: email} }

func (v Viewer) IsAnonymous() bool { return v == Viewer{} }

// CanView reports whether v may read m. shares are the grants on m; grants for
// other memories are ignored.
//
//	owner          always
//	token holder   not private, link open (isPublic) and token matches
//	email identity not private and a grant exists for that email
//	anyone         public
func CanView(m *model.Memory, v Viewer, shares []model.MemoryShare) bool {
	if m == nil {
		return false
	}
	if isOwner(m, v) {
		return true
	}
	if m.Visibility == model.VisibilityPrivate {
		return false
	}
	if v.Token != "" && m.IsPublic && m.ShareToken != "" && v.Token == m.ShareToken {
		return true
	}
	if _, ok := grantFor(m, v, shares); ok {
		return true
	}
	return m.Visibility == model.VisibilityPublic
}

// CanEdit admits the owner, and email grantees holding an edit permission on
// a memory that is not private.
func CanEdit(m *model.Memory, v Viewer, shares []model.MemoryShare) bool {
	if m == nil {
		return false
	}
	if isOwner(m, v) {
		return true
	}
	if m.Visibility == model.VisibilityPrivate {
		return false
	}
	for _, s := range shares {
		if s.MemoryID == m.ID && v.Email != "" && strings.EqualFold(s.SharedWithEmail, v.Email) && s.Permission == model.PermissionEdit {
			return true
		}
	}
	return false
}

// IsOwner reports whether v owns m.
func IsOwner(m *model.Memory, v Viewer) bool { return m != nil && isOwner(m, v) }

func isOwner(m *model.Memory, v Viewer) bool {
	return v.UserID != "" && v.UserID == m.UserID
}

func grantFor(m *model.Memory, v Viewer, shares []model.MemoryShare) (model.MemoryShare, bool) {
	if v.Email == "" {
		return model.MemoryShare{}, false
	}
	for _, s := range shares {
		if s.MemoryID == m.ID && strings.EqualFold(s.SharedWithEmail, v.Email) {
			return s, true
		}
	}
	return model.MemoryShare{}, false
}
