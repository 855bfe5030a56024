package intent

import "regexp"

// AgentTag routes a message to a specialized support behaviour. The set is
// closed: Classify never returns anything outside the constants below.
type AgentTag string

const (
	AgentOrderManagement  AgentTag = "order-management"
	AgentTechnicalSupport AgentTag = "technical-support"
	AgentQueryResolution  AgentTag = "query-resolution"
)

// DefaultAgent is returned when no rule matches.
const DefaultAgent = AgentQueryResolution

// Valid reports whether t is one of the known agent tags.
func (t AgentTag) Valid() bool {
	switch t {
	case AgentOrderManagement, AgentTechnicalSupport, AgentQueryResolution:
		return true
	}
	return false
}

// Locale is one of the two supported conversation languages.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleBN Locale = "bn"
)

// DefaultLocale applies when a request does not name a language.
const DefaultLocale = LocaleEN

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	return l == LocaleEN || l == LocaleBN
}

// OrDefault returns l, or DefaultLocale when l is empty.
func (l Locale) OrDefault() Locale {
	if l == "" {
		return DefaultLocale
	}
	return l
}

// Rule pairs an agent tag with the keyword pattern that selects it.
// Rank groups the English and Bengali entries of one rung of the ladder.
type Rule struct {
	Rank    int
	Locale  Locale
	Tag     AgentTag
	Pattern *regexp.Regexp
}

// rules is evaluated top to bottom and the first match wins. Order is part of
// the contract: "my order status" is an order, not a status query.
var rules = []Rule{
	{1, LocaleEN, AgentOrderManagement, regexp.MustCompile(`order|buy|purchase`)},
	{1, LocaleBN, AgentOrderManagement, regexp.MustCompile(`কিনতে|অর্ডার`)},
	{2, LocaleEN, AgentTechnicalSupport, regexp.MustCompile(`location|status|device|battery|speed|signal`)},
	{2, LocaleBN, AgentTechnicalSupport, regexp.MustCompile(`ডিভাইস|অবস্থা|লোকেশন`)},
	{3, LocaleEN, AgentTechnicalSupport, regexp.MustCompile(`alert|notification|warning`)},
	{3, LocaleBN, AgentTechnicalSupport, regexp.MustCompile(`সতর্কতা|অ্যালার্ট`)},
	{4, LocaleEN, AgentQueryResolution, regexp.MustCompile(`payment|bill|history|subscription`)},
	{4, LocaleBN, AgentQueryResolution, regexp.MustCompile(`পেমেন্ট|বিল`)},
}

// purchaseAction gates order synthesis independently of the agent ladder.
var purchaseAction = regexp.MustCompile(`buy|purchase|order|কিনতে|অর্ডার`)

// Rules returns a copy of the ordered classification table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
