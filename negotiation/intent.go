// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package negotiation

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	IntentGreeting      = "greeting"
	IntentLowballOffer  = "lowball_offer"
	IntentDenial        = "denial"
	IntentFormula17c    = "formula_17c"
	IntentDocumentation = "documentation"
	IntentTimeline      = "timeline"
	IntentFallback      = "fallback"
)

type intentRule struct {
	intent   string
	patterns []*regexp.Regexp
}

func words(ws ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(ws))
	for _, w := range ws {
		out = append(out, regexp.MustCompile(`(?i)\b`+w+`\b`))
	}
	return out
}

// Rules are tried in order; the first match wins. Offers are handled
// before this list because they also need an amount.
var intentRules = []intentRule{
	{IntentDenial, words(`den(y|ied|ial)`, `reject(ed)?`, `refus(e|ed)`, `not (responsible|liable|covered)`, `won'?t pay`, `no diminished value`, `(do not|don'?t) owe`)},
	{IntentFormula17c, append(words(`17c`, `formula`, `base loss`, `cap(ped)?`),
		regexp.MustCompile(`(?i)17\s*\(\s*c\s*\)`), regexp.MustCompile(`\b10\s?%`))},
	{IntentDocumentation, words(`documents?`, `documentation`, `proof`, `evidence`, `prove`, `comparables?`, `comps`, `appraisal`, `report`)},
	{IntentTimeline, words(`how long`, `when`, `deadline`, `timeline`, `days?`, `weeks?`, `statute`)},
	{IntentGreeting, words(`hi`, `hello`, `hey`, `help`, `start`, `good (morning|afternoon|evening)`)},
}

var offerWords = words(`offer(ed|ing|s)?`, `settle(ment)?`, `pay(ing)?`, `propos(e|ed|al)`, `give (me|us)`, `counter`)

var (
	dollarRe = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d{1,2})?)\s*([kK])?\b`)
	wordRe   = regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d{1,2})?)\s*([kK])?\s*(?:dollars|bucks|usd)\b`)
)

// ExtractAmount returns the first dollar amount mentioned, accepting
// "$1,250", "$1.5k" and "900 dollars"
func ExtractAmount(msg string) (float64, bool) {
	best := -1
	var amount float64
	for _, re := range []*regexp.Regexp{dollarRe, wordRe} {
		m := re.FindStringSubmatchIndex(msg)
		if m == nil || (best >= 0 && m[0] >= best) {
			continue
		}
		num := strings.ReplaceAll(msg[m[2]:m[3]], ",", "")
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		if m[4] >= 0 {
			v *= 1000
		}
		best, amount = m[0], v
	}
	return amount, best >= 0
}

// Classify picks the intent of an adjuster message. A message with an
// amount and offer wording, or nothing but an amount, is an offer.
func Classify(msg string) string {
	if _, ok := ExtractAmount(msg); ok {
		if matchAny(offerWords, msg) || !matchAnyRule(msg) {
			return IntentLowballOffer
		}
	}
	for _, rule := range intentRules {
		if matchAny(rule.patterns, msg) {
			return rule.intent
		}
	}
	return IntentFallback
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func matchAnyRule(s string) bool {
	for _, rule := range intentRules {
		if matchAny(rule.patterns, s) {
			return true
		}
	}
	return false
}
