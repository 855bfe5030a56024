package intent

import "strings"

// Classify maps a free-form message to an agent tag by walking the rule table
// in order. Matching is case-insensitive; Bengali script has no case and is
// matched as-is.
func Classify(message string) AgentTag {
	return classifyWith(rules, message)
}

func classifyWith(table []Rule, message string) AgentTag {
	lower := strings.ToLower(message)
	for _, r := range table {
		if r.Pattern.MatchString(lower) {
			return r.Tag
		}
	}
	return DefaultAgent
}

// IsPurchaseAction reports whether the message carries an explicit
// buy/order keyword in either language.
func IsPurchaseAction(message string) bool {
	return purchaseAction.MatchString(strings.ToLower(message))
}
