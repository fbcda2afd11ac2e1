package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"accessflow.dev/internal/access"
	"accessflow.dev/internal/audit"
	"accessflow.dev/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Next      access.LoginNext `json:"next"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      access.Profile   `json:"user"`
}

type inviteRequest struct {
	Email            string `json:"email"`
	Role             string `json:"role"`
	OrganizationName string `json:"organization_name"`
}

type inviteResponse struct {
	InvitationID string    `json:"invitation_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Link         string    `json:"link"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type acceptInviteRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type acceptInviteResponse struct {
	User       access.Profile   `json:"user"`
	MFA        access.MFAMethod `json:"mfa"`
	SetupToken string           `json:"setup_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.CountLogin("denied")
		handleAccessError(w, r, err)
		return
	}

	obs.CountLogin(string(res.Next))
	_ = audit.LogEvent(r.Context(), "auth.login.challenge", map[string]any{
		"user_id": res.User.ID,
		"next":    string(res.Next),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Next:      res.Next,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.User,
	})
}

func (a *API) handleInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	inviterID, ok := access.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.svc.CreateInvite(r.Context(), inviterID, req.Email, access.Role(req.Role), req.OrganizationName)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	obs.CountInviteCreated()
	_ = audit.LogEvent(r.Context(), "auth.invite.created", map[string]any{
		"invitation_id": res.Invitation.ID,
		"email":         res.Invitation.Email,
		"role":          string(res.Invitation.Role),
	})
	writeJSON(w, http.StatusCreated, inviteResponse{
		InvitationID: res.Invitation.ID,
		Email:        res.Invitation.Email,
		Role:         string(res.Invitation.Role),
		Link:         res.Link,
		ExpiresAt:    res.Invitation.ExpiresAt,
	})
}

func (a *API) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req acceptInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.svc.AcceptInvite(r.Context(), req.Token, req.Name, req.Password)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	obs.CountInviteAccepted()
	_ = audit.LogEvent(r.Context(), "auth.invite.accepted", map[string]any{
		"user_id": res.User.ID,
		"role":    string(res.User.Role),
	})
	writeJSON(w, http.StatusCreated, acceptInviteResponse{
		User:       res.User,
		MFA:        res.MFA,
		SetupToken: res.SetupToken,
	})
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := a.svc.RequestReset(r.Context(), req.Email); err != nil {
		handleAccessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.reset.requested", map[string]any{
		"email": req.Email,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reset_link_sent",
	})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		handleAccessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.reset.completed", nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "password_updated",
	})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	role, ok := access.RoleFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if role != access.RoleSuperAdmin && role != access.RoleSiteAdmin {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return
	}

	profiles, err := a.svc.ListUsers(r.Context())
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": profiles,
	})
}

// --- helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, access.ErrInvalidInput), errors.Is(err, access.ErrMFANotConfigured):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, access.ErrInvalidCredentials), errors.Is(err, access.ErrInvalidToken),
		errors.Is(err, access.ErrInvalidCode), errors.Is(err, access.ErrCodeExpired):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, access.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, access.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, access.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
