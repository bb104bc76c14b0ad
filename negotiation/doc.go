// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package negotiation is the chat assistant that coaches an owner through the
insurer's response to a diminished value claim.

It is rule based. Classify assigns one of seven intents to the adjuster's
message using keyword patterns:

	greeting       hello, help
	lowball_offer  a dollar amount with offer wording, or a bare amount
	denial         denied, rejected, not liable, don't owe
	formula_17c    17c, 17(c), formula, capped, 10%
	documentation  proof, evidence, comparables, report
	timeline       how long, deadline, days, statute
	fallback       anything else

ExtractAmount finds the first amount written as "$1,250", "$1.5k" or
"900 dollars".

Offers are answered with CounterOffer: an offer at or above the appraised
amount should be accepted, an offer under 80% of it is countered at the full
amount, anything in between is countered at the midpoint.

Replies are text/template blocks named after the intents and filled with the
appraisal numbers from Conversation. The same input always yields the same
Reply.
*/
package negotiation
