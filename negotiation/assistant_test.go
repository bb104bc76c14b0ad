// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package negotiation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielhkuo/dv-appraisal/report"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

func testConversation() Conversation {
	return Conversation{
		AppraisalID: "apr_1",
		Vehicle:     "2021 Honda Accord",
		Estimate: valuation.Estimate{
			Amount:           2000,
			Low:              1700,
			High:             2300,
			PreAccidentValue: 25000,
		},
		RepairCost:  5000,
		Comparables: 3,
		ClaimNumber: "CLM-42",
	}
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		msg  string
		want float64
		ok   bool
	}{
		{"We can offer $1,250 for the loss.", 1250, true},
		{"offer is $ 900", 900, true},
		{"best we can do is $1.5k", 1500, true},
		{"we'll pay 800 dollars", 800, true},
		{"$300.50 final", 300.50, true},
		{"first $500 then $700", 500, true},
		{"700 dollars or $900", 700, true},
		{"no numbers here", 0, false},
		{"10% of the value", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, ok := ExtractAmount(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"Hello, I need help", IntentGreeting},
		{"The adjuster offered $800", IntentLowballOffer},
		{"$1,200", IntentLowballOffer},
		{"They denied my claim", IntentDenial},
		{"Our position is that we do not owe diminished value", IntentDenial},
		{"They used the 17c formula", IntentFormula17c},
		{"They said 17(c) applies", IntentFormula17c},
		{"Loss is capped at 10% of value", IntentFormula17c},
		{"What proof should I send?", IntentDocumentation},
		{"How long does this take?", IntentTimeline},
		{"banana", IntentFallback},
		{"They denied it even though I paid $500 for the appraisal", IntentDenial},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.msg))
		})
	}
}

func TestCounterOffer(t *testing.T) {
	accept, counter := CounterOffer(2000, 2000)
	assert.True(t, accept)
	assert.Equal(t, 0.0, counter)

	accept, counter = CounterOffer(1000, 2000)
	assert.False(t, accept)
	assert.Equal(t, 2000.0, counter)

	// 1600 is exactly 80%, so not a lowball
	accept, counter = CounterOffer(1600, 2000)
	assert.False(t, accept)
	assert.Equal(t, 1800.0, counter)

	_, counter = CounterOffer(1799, 2000)
	assert.Equal(t, 1900.0, counter)
}

func TestReply_Lowball(t *testing.T) {
	r := NewAssistant().Reply(context.Background(), testConversation(), "They offered $500 to settle")

	assert.Equal(t, IntentLowballOffer, r.Intent)
	assert.Equal(t, 500.0, r.Offer)
	assert.Equal(t, 2000.0, r.Counter)
	assert.False(t, r.Accept)
	assert.Contains(t, r.Text, "$500")
	assert.Contains(t, r.Text, "$1,500 short")
	assert.Contains(t, r.Text, "Counter at the full $2,000")
	assert.Contains(t, r.Text, "3 comparable listings")
}

func TestReply_Midpoint(t *testing.T) {
	r := NewAssistant().Reply(context.Background(), testConversation(), "We can pay $1,700")

	assert.Equal(t, 1850.0, r.Counter)
	assert.Contains(t, r.Text, "counter of $1,850 splits the difference")
}

func TestReply_Accept(t *testing.T) {
	r := NewAssistant().Reply(context.Background(), testConversation(), "final offer $2,100")

	assert.True(t, r.Accept)
	assert.Equal(t, 0.0, r.Counter)
	assert.Contains(t, r.Text, "accept it")
}

func TestReply_TemplatesFillNumbers(t *testing.T) {
	a := NewAssistant()
	conv := testConversation()

	greeting := a.Reply(context.Background(), conv, "hi")
	assert.Contains(t, greeting.Text, "2021 Honda Accord")
	assert.Contains(t, greeting.Text, "$1,700 to $2,300")

	denial := a.Reply(context.Background(), conv, "claim rejected")
	assert.Equal(t, IntentDenial, denial.Intent)
	assert.Contains(t, denial.Text, "on claim CLM-42")

	formula := a.Reply(context.Background(), conv, "they use a formula")
	assert.Contains(t, formula.Text, "$25,000")

	docs := a.Reply(context.Background(), conv, "what documents do I need")
	assert.Contains(t, docs.Text, "$5,000")

	fallback := a.Reply(context.Background(), conv, "purple")
	assert.Equal(t, IntentFallback, fallback.Intent)
	assert.Contains(t, fallback.Text, "$2,000")
	assert.Zero(t, fallback.Offer)
}

func TestReply_MoneyMatchesReport(t *testing.T) {
	conv := testConversation()
	conv.Estimate.Amount = 1234.5

	r := NewAssistant().Reply(context.Background(), conv, "purple")
	assert.Contains(t, r.Text, report.Money(1234.5))
	assert.Contains(t, r.Text, "$1,235")
}

func TestReply_Deterministic(t *testing.T) {
	a := NewAssistant()
	first := a.Reply(context.Background(), testConversation(), "They offered $1,000")
	second := a.Reply(context.Background(), testConversation(), "They offered $1,000")
	assert.Equal(t, first, second)
}

func TestReply_UnnamedVehicle(t *testing.T) {
	conv := testConversation()
	conv.Vehicle = ""
	r := NewAssistant().Reply(context.Background(), conv, "hello")
	assert.Contains(t, r.Text, "for your vehicle")
}
