// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"time"

	"github.com/danielhkuo/dv-appraisal/mailer"
	"github.com/danielhkuo/dv-appraisal/negotiation"
	"github.com/danielhkuo/dv-appraisal/report"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

// VINDecoder looks up the factory data for a VIN
type VINDecoder interface {
	Decode(ctx context.Context, vin string) (valuation.DecodedVehicle, error)
}

// Services are the collaborators the handlers call besides the database.
// Nil fields fall back to disabled implementations.
type Services struct {
	Rules     valuation.Rules
	Prices    valuation.PriceSource
	Decoder   VINDecoder
	PDF       report.Renderer
	Mailer    mailer.Mailer
	Assistant *negotiation.Assistant
	Now       func() time.Time
}

func (s Services) withDefaults() Services {
	if s.Rules.Comparables.Count == 0 {
		s.Rules = valuation.DefaultRules()
	}
	if s.PDF == nil {
		s.PDF = report.DisabledRenderer{}
	}
	if s.Mailer == nil {
		s.Mailer = mailer.NoopMailer{}
	}
	if s.Assistant == nil {
		s.Assistant = negotiation.NewAssistant()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

func (s Services) now() time.Time {
	return s.Now().UTC()
}
