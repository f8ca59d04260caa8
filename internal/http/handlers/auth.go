package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mailnotes/server/internal/auth"
	"github.com/mailnotes/server/internal/logging"
	"github.com/mailnotes/server/internal/middleware"
)

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *auth.AuthService
	cookies      CookieOptions
	strictChoice bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler. With strictChoice, unknown
// session choices are rejected instead of getting the longest lifetime.
func NewAuthHandler(authService *auth.AuthService, cookies CookieOptions, strictChoice bool) *AuthHandler {
	if cookies.SameSite == 0 {
		cookies.SameSite = http.SameSiteLaxMode
	}
	return &AuthHandler{
		authService:  authService,
		cookies:      cookies,
		strictChoice: strictChoice,
		logger:       slog.Default().With("component", "http.auth"),
	}
}

// userResponse is the user object in API responses
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func toUserResponse(id auth.Identity) userResponse {
	return userResponse{ID: id.ID.String(), Email: id.Email}
}

// HandleSendCode handles POST /auth/send-code
func (h *AuthHandler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	body, err := readFields(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := auth.NormalizeEmail(body.get("email"))
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.authService.RequestCode(r.Context(), email); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue login code", "email", logging.MaskEmail(email), "error", err)
		if errors.Is(err, auth.ErrDeliveryFailed) {
			respondWithError(w, http.StatusInternalServerError, "failed to send code")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to issue code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "code_sent",
		"email":   email,
	})
}

// HandleVerifyCode handles POST /auth/verify-code. Success sets a one-day
// session cookie; the client then picks a lifetime via /auth/session-duration.
func (h *AuthHandler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	body, err := readFields(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := body.get("email")
	sess, err := h.authService.VerifyCode(r.Context(), email, body.get("code"))
	if err != nil {
		status, message := verifyErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "code verification failed", "email", logging.MaskEmail(email), "error", err)
		} else {
			h.logger.InfoContext(r.Context(), "code rejected", "email", logging.MaskEmail(email), "reason", message)
		}
		respondWithError(w, status, message)
		return
	}

	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"next": "session_duration",
		"user": toUserResponse(sess.Identity),
	})
}

func verifyErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmailRequired), errors.Is(err, auth.ErrCodeRequired):
		return http.StatusBadRequest, "email and code are required"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusBadRequest, "user not found"
	case errors.Is(err, auth.ErrInvalidCode):
		return http.StatusBadRequest, "invalid code"
	case errors.Is(err, auth.ErrCodeAlreadyUsed):
		return http.StatusBadRequest, "code already used"
	case errors.Is(err, auth.ErrCodeExpired):
		return http.StatusBadRequest, "code expired"
	default:
		return http.StatusInternalServerError, "failed to verify code"
	}
}

// HandleSessionDuration handles POST /auth/session-duration (protected).
func (h *AuthHandler) HandleSessionDuration(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := readFields(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	choice := body.get("choice")
	if _, known := auth.ParseSessionChoice(choice); !known {
		if h.strictChoice {
			respondWithError(w, http.StatusBadRequest, "unknown session choice")
			return
		}
		h.logger.WarnContext(r.Context(), "unknown session choice, using longest lifetime", "choice", choice)
	}

	sess := h.authService.RenewSession(id, choice)
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"max_age": int64(sess.MaxAge.Seconds()),
	})
}

// HandleLogout handles GET and POST /auth/logout. Only this browser is
// signed out; other credentials stay valid until the secret rotates.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMe handles GET /me (protected). Returns the authenticated user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": toUserResponse(id)})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Credential,
		Path:     "/",
		MaxAge:   int(sess.MaxAge.Seconds()),
		Expires:  time.Now().Add(sess.MaxAge),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}
