package dispatch

import (
	"strings"
)

// rule maps provider error text to an outcome. Every substring in
// match must occur (case-insensitive) for the rule to fire.
type rule struct {
	match   []string
	outcome Outcome
}

// classification is ordered; the first matching rule wins. Unknown
// errors fall through to Fatal so upstream retry loops never spin on
// failures we cannot identify as transient.
var classification = []rule{
	{match: []string{"rate limit"}, outcome: OutcomeRetryable},
	{match: []string{"quota"}, outcome: OutcomeRetryable},
	{match: []string{"connection"}, outcome: OutcomeRetryable},
	{match: []string{"timeout"}, outcome: OutcomeRetryable},
	{match: []string{"invalid", "key"}, outcome: OutcomeFatal},
	{match: []string{"invalid", "api"}, outcome: OutcomeFatal},
}

// Classify buckets a provider failure as retryable or fatal from its
// message text.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	text := strings.ToLower(err.Error())
	for _, r := range classification {
		if matchesAll(text, r.match) {
			return r.outcome
		}
	}
	return OutcomeFatal
}

func matchesAll(text string, subs []string) bool {
	for _, s := range subs {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return true
}
