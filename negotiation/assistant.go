// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package negotiation

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"strings"
	"text/template"

	"github.com/danielhkuo/dv-appraisal/report"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

// lowballRatio is the share of the estimate below which an offer is countered at the full estimate
const lowballRatio = 0.8

// Conversation carries the appraisal numbers a reply may quote
type Conversation struct {
	AppraisalID string
	Vehicle     string
	Estimate    valuation.Estimate
	RepairCost  float64
	Comparables int
	InsurerName string
	ClaimNumber string
}

// Reply is the assistant's answer to one message
type Reply struct {
	Intent  string  `json:"intent"`
	Text    string  `json:"text"`
	Offer   float64 `json:"offer,omitempty"`
	Counter float64 `json:"counter,omitempty"`
	Accept  bool    `json:"accept,omitempty"`
}

type replyData struct {
	Conversation
	Offer   float64
	Counter float64
	Accept  bool
	Lowball bool
	Gap     float64
}

const replyTemplates = `
{{define "greeting"}}Hi! I can help you negotiate the diminished value claim for your {{vehicle .}}. Your appraisal puts the loss at {{money .Estimate.Amount}} (range {{money .Estimate.Low}} to {{money .Estimate.High}}). Paste what the adjuster said, including any offer, and I'll suggest a response.{{end}}

{{define "lowball_offer"}}{{if .Accept}}An offer of {{money .Offer}} meets or beats your appraised diminished value of {{money .Estimate.Amount}}. That is a fair settlement; get it in writing and accept it.{{else if .Lowball}}An offer of {{money .Offer}} is well below your appraised diminished value of {{money .Estimate.Amount}} ({{money .Gap}} short). Counter at the full {{money .Counter}} and point the adjuster to the attached appraisal report{{if .Comparables}}, which is backed by {{.Comparables}} comparable listings{{end}}.{{else}}An offer of {{money .Offer}} is within reach of your appraised {{money .Estimate.Amount}}. A counter of {{money .Counter}} splits the difference and is likely to close the claim quickly.{{end}}{{end}}

{{define "denial"}}Insurers often deny diminished value at first. In most states the at-fault driver's insurer owes you for the loss in market value, not only the repair. Reply in writing{{with .ClaimNumber}} on claim {{.}}{{end}}, attach your appraisal showing {{money .Estimate.Amount}} of diminished value, and ask the adjuster to cite the policy language or statute the denial relies on.{{end}}

{{define "formula_17c"}}The "17c" formula caps diminished value at 10% of the pre-accident value and then cuts it further for damage and mileage. It was built by insurers and ignores how buyers price accident history. Your appraisal uses a pre-accident value of {{money .Estimate.PreAccidentValue}} and blends the 17c result with a market stigma method, arriving at {{money .Estimate.Amount}}. Ask the adjuster to explain why the 17c figure alone reflects what a buyer would pay.{{end}}

{{define "documentation"}}Send the adjuster your appraisal report and demand letter. Together they document the pre-accident value of {{money .Estimate.PreAccidentValue}}{{if .Comparables}}, {{.Comparables}} comparable vehicles for sale{{end}}, the repair cost of {{money .RepairCost}} and the resulting diminished value of {{money .Estimate.Amount}}. Keep the repair invoice and photos handy in case they ask.{{end}}

{{define "timeline"}}Ask for a written decision within 30 days; the demand letter already sets that deadline. Diminished value claims usually settle in two to six weeks. Watch your state's statute of limitations for property damage, which is commonly two to three years from the date of loss.{{end}}

{{define "fallback"}}I'm not sure how to read that message. Your appraised diminished value is {{money .Estimate.Amount}}. If the adjuster made an offer, include the dollar amount; you can also ask about the 17c formula, documentation, denials or timelines.{{end}}
`

var replies = template.Must(template.New("replies").Funcs(template.FuncMap{
	"money": report.Money,
	"vehicle": func(d replyData) string {
		if d.Vehicle == "" {
			return "vehicle"
		}
		return d.Vehicle
	},
}).Parse(replyTemplates))

// Assistant answers adjuster messages with templated advice. It is
// deterministic and keeps no state between calls.
type Assistant struct {
	tmpl *template.Template
}

func NewAssistant() *Assistant {
	return &Assistant{tmpl: replies}
}

// Reply classifies message and fills the matching response with the appraisal numbers
func (a *Assistant) Reply(ctx context.Context, conv Conversation, message string) Reply {
	intent := Classify(message)
	data := replyData{Conversation: conv}

	if intent == IntentLowballOffer {
		offer, _ := ExtractAmount(message)
		data.Offer = offer
		data.Accept, data.Counter = CounterOffer(offer, conv.Estimate.Amount)
		data.Lowball = !data.Accept && offer < conv.Estimate.Amount*lowballRatio
		data.Gap = math.Max(conv.Estimate.Amount-offer, 0)
	}

	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, intent, data); err != nil {
		slog.ErrorContext(ctx, "negotiation template failed", "intent", intent, "error", err)
		intent = IntentFallback
		buf.Reset()
		_ = a.tmpl.ExecuteTemplate(&buf, IntentFallback, data)
	}

	return Reply{
		Intent:  intent,
		Text:    strings.TrimSpace(buf.String()),
		Offer:   data.Offer,
		Counter: data.Counter,
		Accept:  data.Accept,
	}
}

// CounterOffer decides how to answer an offer. At or above the estimate the
// offer should be accepted; under 80% of it the counter is the estimate;
// otherwise the counter is the rounded midpoint.
func CounterOffer(offer, estimate float64) (accept bool, counter float64) {
	switch {
	case offer >= estimate:
		return true, 0
	case offer < estimate*lowballRatio:
		return false, estimate
	default:
		return false, math.Round((offer + estimate) / 2)
	}
}
