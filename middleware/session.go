// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/dv-appraisal/auth"
	"github.com/danielhkuo/dv-appraisal/models"
)

const SessionCookieName = "dv_session"

var ErrNoSession = errors.New("no valid session")

type userKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user set by RequireSession
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey{}).(models.User)
	return u, ok
}

// SessionToken reads the session token from the Authorization bearer header or the session cookie
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// LookupSession resolves a raw session token to its user
func LookupSession(ctx context.Context, db *sql.DB, token string, now time.Time) (models.User, error) {
	if err := auth.ValidateTokenFormat(token); err != nil {
		return models.User{}, ErrNoSession
	}

	var u models.User
	err := db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.name, u.created_at
		FROM session s
		JOIN app_user u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.expires_at > $2
	`, auth.HashToken(token), now.UTC()).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNoSession
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// RequireSession rejects requests without a live session and puts the user in the context
func RequireSession(db *sql.DB, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := SessionToken(r)
		if token == "" {
			ErrorResponse(w, http.StatusUnauthorized, "Login required")
			return
		}

		u, err := LookupSession(r.Context(), db, token, time.Now())
		if errors.Is(err, ErrNoSession) {
			ErrorResponse(w, http.StatusUnauthorized, "Session expired or invalid")
			return
		}
		if err != nil {
			slog.Error("session lookup failed", "error", err)
			ErrorResponse(w, http.StatusInternalServerError, "Internal error")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), u)))
	}
}
