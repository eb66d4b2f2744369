package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/policy"
	"github.com/sakif/memory-journal/internal/service"
	"github.com/sakif/memory-journal/internal/validate"
)

// SharingHandler serves public links, per-email grants and visibility.
type SharingHandler struct {
	sharing  *service.SharingService
	identity *Identity
	validate *validate.Validator
	logger   *slog.Logger
}

func NewSharingHandler(sharing *service.SharingService, identity *Identity, validate *validate.Validator, logger *slog.Logger) *SharingHandler {
	return &SharingHandler{sharing: sharing, identity: identity, validate: validate, logger: logger}
}

// actorRequest names the acting user in development mode.
type actorRequest struct {
	UserID string `json:"userId"`
}

// HandleShare issues a fresh public link; any previous link stops working.
//
// HTTP: POST /api/memories/{id}/share
func (h *SharingHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor, err := h.identity.RequireUser(r, firstNonEmpty(req.UserID, r.URL.Query().Get("userId")))
	if err != nil {
		writeError(w, err)
		return
	}

	link, err := h.sharing.GeneratePublicLink(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

type shareWithUserRequest struct {
	Email          string           `json:"email" validate:"required,email"`
	Permission     model.Permission `json:"permission" validate:"omitempty,oneof=view edit"`
	SharedByUserID string           `json:"sharedByUserId"`
}

// HandleShareWithUser grants an email address access.
//
// HTTP: POST /api/memories/{id}/share-with-user
func (h *SharingHandler) HandleShareWithUser(w http.ResponseWriter, r *http.Request) {
	var req shareWithUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	actor, err := h.identity.RequireUser(r, req.SharedByUserID)
	if err != nil {
		writeError(w, err)
		return
	}

	share, err := h.sharing.ShareWithUser(r.Context(), actor, chi.URLParam(r, "id"), req.Email, req.Permission)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

// HandleListShares lists the grants on one of the caller's memories.
//
// HTTP: GET /api/memories/{id}/shares
func (h *SharingHandler) HandleListShares(w http.ResponseWriter, r *http.Request) {
	actor, err := h.identity.RequireUser(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	shares, err := h.sharing.ListShares(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

type RevokeResponse struct {
	Message string `json:"message"`
	Revoked bool   `json:"revoked"`
}

// HandleRevoke deletes a grant. Revoking a grant that is already gone is
// not an error.
//
// HTTP: DELETE /api/shares/{shareId}
func (h *SharingHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	actor, err := h.identity.Viewer(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	revoked, err := h.sharing.Revoke(r.Context(), actor, chi.URLParam(r, "shareId"))
	if err != nil {
		writeError(w, err)
		return
	}

	msg := "Share revoked successfully"
	if !revoked {
		msg = "Share already revoked"
	}
	writeJSON(w, http.StatusOK, RevokeResponse{Message: msg, Revoked: revoked})
}

type visibilityRequest struct {
	Visibility model.Visibility `json:"visibility" validate:"required,oneof=private shared public"`
	UserID     string           `json:"userId"`
}

// HandleSetVisibility changes a memory's access level.
//
// HTTP: PATCH /api/memories/{id}/visibility
func (h *SharingHandler) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	actor, err := h.identity.RequireUser(r, firstNonEmpty(req.UserID, r.URL.Query().Get("userId")))
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.sharing.SetVisibility(r.Context(), actor, chi.URLParam(r, "id"), req.Visibility)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleResolve serves the memory behind a public link. No authentication.
//
// HTTP: GET /api/shared/{token}
func (h *SharingHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	m, err := h.sharing.ResolveByToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, present(m, policy.TokenHolder(token)))
}

// HandleSharedWithMe lists memories granted to an email. With sessions the
// email is the caller's own and may not name anyone else.
//
// HTTP: GET /api/shared-memories?email=
func (h *SharingHandler) HandleSharedWithMe(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	viewer, err := h.identity.Viewer(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	if h.identity.sessions {
		if viewer.UserID == "" {
			writeError(w, apperror.Unauthorized("authentication required"))
			return
		}
		if email != "" && !equalFoldTrim(email, viewer.Email) {
			writeError(w, apperror.Forbidden("you can only list memories shared with your own email"))
			return
		}
		email = viewer.Email
	}

	memories, err := h.sharing.ListSharedWithEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentAll(memories, policy.EmailIdentity(email)))
}
