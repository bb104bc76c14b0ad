// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides password, session and signed-link primitives.

# Passwords

Passwords are hashed with bcrypt at the default cost:

	hash, err := auth.HashPassword(pw)   // ErrPasswordTooShort under 8 chars
	err = auth.CheckPassword(hash, pw)   // ErrInvalidCredentials on mismatch

# Session Tokens

Session tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateSessionToken()
	row := auth.HashToken(token)

The token goes to the client (cookie or bearer header); the database only
keeps its SHA-256 hex so a leaked table cannot be replayed.

# Report Links

Share links for a finished report use HMAC-SHA256 over the appraisal ID and
expiry time:

	sig := auth.SignReportLink(appraisalID, expires, secret)
	err := auth.ValidateReportLink(appraisalID, expires.Unix(), sig, secret, time.Now())

Like the signature itself, validation needs no database row. A wrong
signature is ErrInvalidSignature; a correct one past its expiry is
ErrLinkExpired.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters

# IP Hashing

For privacy-preserving rate limit keys and audit fields:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
