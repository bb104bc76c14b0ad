// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/danielhkuo/dv-appraisal/auth"
	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
)

// SessionTTL is how long a login stays valid
const SessionTTL = 30 * 24 * time.Hour

// AuthHandler manages accounts and sessions. Session times use the wall
// clock because RequireSession checks expiry against it.
type AuthHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAuthHandler(db *sql.DB, cfg cliparse.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email, ok := normalizeEmail(req.Email)
	if !ok {
		middleware.FieldErrorResponse(w, "Invalid registration", map[string][]string{"email": {"must be a valid address"}})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
		middleware.FieldErrorResponse(w, "Invalid registration", map[string][]string{"password": {err.Error()}})
		return
	}
	if err != nil {
		log.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	var exists int
	err = h.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM app_user WHERE email = $1", email).Scan(&exists)
	if err != nil {
		log.Error("failed to check email", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "An account with this email already exists")
		return
	}

	userID, err := auth.GenerateID(16)
	if err != nil {
		log.Error("failed to generate user ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	now := time.Now().UTC()
	user := models.User{ID: userID, Email: email, Name: strings.TrimSpace(req.Name), CreatedAt: now}

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO app_user (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.Name, hash, now)
	if err != nil {
		log.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	log.Info("user registered", "user_id", user.ID)
	h.startSession(w, r, user, http.StatusCreated)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email, _ := normalizeEmail(req.Email)

	var user models.User
	var hash string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, email, name, password_hash, created_at
		FROM app_user
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &hash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if token != "" {
		_, err := h.db.ExecContext(r.Context(), "DELETE FROM session WHERE token_hash = $1", auth.HashToken(token))
		if err != nil {
			logging.FromContext(r.Context()).Error("failed to delete session", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user models.User, status int) {
	token, expires, err := h.createSession(r.Context(), user.ID, r)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create session", "user_id", user.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})

	middleware.JSONResponse(w, status, models.AuthResponse{
		User:      user,
		Token:     token,
		ExpiresAt: expires,
	})
}

func (h *AuthHandler) createSession(ctx context.Context, userID string, r *http.Request) (string, time.Time, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	expires := now.Add(SessionTTL)
	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.SessionSecret)

	userAgent := r.UserAgent()
	if len(userAgent) > 256 {
		userAgent = userAgent[:256]
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO session (token_hash, user_id, ip_hash, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, auth.HashToken(token), userID, ipHash, userAgent, now, expires)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func normalizeEmail(s string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
