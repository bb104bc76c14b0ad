// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package mailer sends appraisal reports by email through Resend, or logs and
// refuses with ErrMailDisabled when RESEND_API_KEY is not set.
package mailer
