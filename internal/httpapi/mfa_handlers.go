package httpapi

import (
	"net/http"
	"time"

	"accessflow.dev/internal/access"
	"accessflow.dev/internal/audit"
	"accessflow.dev/internal/obs"
)

type chooseMethodRequest struct {
	Method string `json:"method"`
}

type chooseMethodResponse struct {
	Method     access.MFAMethod `json:"method"`
	OTPAuthURL string           `json:"otpauth_url,omitempty"`
	QRCode     string           `json:"qr_code,omitempty"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

type verifyCodeResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      access.Profile `json:"user"`
}

// MFA endpoints carry their own scoped tokens; the setup and mfa-verify
// scopes are checked by the service, not the session middleware.
func (a *API) handleChooseMethod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	var req chooseMethodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	enrollment, err := a.svc.ChooseMethod(r.Context(), token, access.MFAMethod(req.Method))
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "mfa.method.chosen", map[string]any{
		"method": string(enrollment.Method),
	})
	writeJSON(w, http.StatusOK, chooseMethodResponse{
		Method:     enrollment.Method,
		OTPAuthURL: enrollment.OTPAuthURL,
		QRCode:     enrollment.QRCode,
	})
}

func (a *API) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	var req verifyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.svc.VerifyCode(r.Context(), token, req.Code)
	if err != nil {
		obs.CountMFAVerification("denied")
		handleAccessError(w, r, err)
		return
	}

	obs.CountMFAVerification("granted")
	_ = audit.LogEvent(r.Context(), "mfa.code.verified", map[string]any{
		"user_id": session.User.ID,
	})
	writeJSON(w, http.StatusOK, verifyCodeResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	})
}
