package response

import (
	"regexp"
	"strings"
	"time"

	"github.com/kalambet/tmvbd/internal/intent"
	"github.com/kalambet/tmvbd/internal/order"
	"github.com/kalambet/tmvbd/internal/profile"
)

// Confidence is fixed by profile presence; it does not reflect the
// generation backend's own certainty.
const (
	ConfidencePersonalized = 0.98
	ConfidenceAnonymous    = 0.75
)

// IntentTag is the display-only classification of a message.
type IntentTag string

const (
	IntentOrder    IntentTag = "order_intent"
	IntentLocation IntentTag = "location_query"
	IntentAlert    IntentTag = "alert_inquiry"
	IntentGeneral  IntentTag = "general_inquiry"
)

// The intent ladder is deliberately separate from the agent rule table and
// may disagree with it ("buy" routes to order management but reads as a
// general inquiry here).
var intentLadder = []struct {
	tag     IntentTag
	pattern *regexp.Regexp
}{
	{IntentOrder, regexp.MustCompile(`order`)},
	{IntentLocation, regexp.MustCompile(`location|status`)},
	{IntentAlert, regexp.MustCompile(`alert`)},
}

var (
	deviceStatusHint   = regexp.MustCompile(`device|status|battery|signal`)
	mapHint            = regexp.MustCompile(`location|map|address`)
	alertsHint         = regexp.MustCompile(`alert|warning|notification`)
	paymentHistoryHint = regexp.MustCompile(`payment|bill|history`)
)

// VisualElements tells the client which panels to render alongside a reply.
type VisualElements struct {
	ShowDeviceStatus   bool `json:"showDeviceStatus"`
	ShowMap            bool `json:"showMap"`
	ShowAlerts         bool `json:"showAlerts"`
	ShowPaymentHistory bool `json:"showPaymentHistory"`
}

// CustomerContext echoes a summary of the profile used for personalization.
type CustomerContext struct {
	HasRealData       bool             `json:"hasRealData"`
	DeviceCount       int              `json:"deviceCount"`
	SubscriptionLevel string           `json:"subscriptionLevel"`
	LoyaltyTier       string           `json:"loyaltyTier"`
	VehicleInfo       *profile.Vehicle `json:"vehicleInfo"`
}

// Metadata describes how a reply was produced.
type Metadata struct {
	Language             intent.Locale `json:"language"`
	Timestamp            time.Time     `json:"timestamp"`
	CustomerDataUsed     bool          `json:"customerDataUsed"`
	ResponsePersonalized bool          `json:"responsePersonalized"`
}

// ChatResponse is the structured reply returned to the caller.
type ChatResponse struct {
	Message         string           `json:"message"`
	Agent           intent.AgentTag  `json:"agent"`
	Confidence      float64          `json:"confidence"`
	Intent          IntentTag        `json:"intent"`
	OrderCreated    *order.Order     `json:"orderCreated,omitempty"`
	VisualElements  VisualElements   `json:"visualElements"`
	CustomerContext *CustomerContext `json:"customerContext"`
	Metadata        Metadata         `json:"metadata"`
}

// Input gathers everything the assembler merges into a reply.
type Input struct {
	Message   string
	Generated string
	Agent     intent.AgentTag
	Order     *order.Order
	Profile   *profile.CustomerProfile
	Language  intent.Locale
}

// Assembler merges pipeline outputs into a ChatResponse.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an Assembler using the wall clock.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Assemble builds the reply. It performs no I/O.
func (a *Assembler) Assemble(in Input) ChatResponse {
	personalized := in.Profile != nil
	return ChatResponse{
		Message:         in.Generated,
		Agent:           in.Agent,
		Confidence:      Confidence(personalized),
		Intent:          DetectIntent(in.Message),
		OrderCreated:    in.Order,
		VisualElements:  DetectVisuals(in.Message),
		CustomerContext: Echo(in.Profile),
		Metadata: Metadata{
			Language:             in.Language.OrDefault(),
			Timestamp:            a.now().UTC(),
			CustomerDataUsed:     personalized,
			ResponsePersonalized: personalized,
		},
	}
}

// Confidence returns the fixed score for the given personalization state.
func Confidence(personalized bool) float64 {
	if personalized {
		return ConfidencePersonalized
	}
	return ConfidenceAnonymous
}

// DetectIntent runs the display intent ladder over the message.
func DetectIntent(message string) IntentTag {
	lower := strings.ToLower(message)
	for _, rung := range intentLadder {
		if rung.pattern.MatchString(lower) {
			return rung.tag
		}
	}
	return IntentGeneral
}

// DetectVisuals evaluates each display hint independently.
func DetectVisuals(message string) VisualElements {
	lower := strings.ToLower(message)
	return VisualElements{
		ShowDeviceStatus:   deviceStatusHint.MatchString(lower),
		ShowMap:            mapHint.MatchString(lower),
		ShowAlerts:         alertsHint.MatchString(lower),
		ShowPaymentHistory: paymentHistoryHint.MatchString(lower),
	}
}

// Echo summarizes p for the reply, or returns nil without a profile.
func Echo(p *profile.CustomerProfile) *CustomerContext {
	if p == nil {
		return nil
	}
	return &CustomerContext{
		HasRealData:       true,
		DeviceCount:       p.Devices,
		SubscriptionLevel: p.Subscription,
		LoyaltyTier:       profile.LoyaltyTier(p.LoyaltyPoints),
		VehicleInfo:       p.VehicleInfo,
	}
}
