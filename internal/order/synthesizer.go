package order

import (
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/tmvbd/internal/intent"
	"github.com/kalambet/tmvbd/internal/profile"
)

const (
	// DefaultBasePrice is the price of the premium VTS device in BDT.
	DefaultBasePrice = 900.0
	// DefaultPaymentURL is the bKash checkout endpoint orders link to.
	DefaultPaymentURL = "https://payment.tmvbd.com/bkash"

	idPrefix      = "TMVBD"
	suffixLen     = 6
	pointsPerTaka = 10
	maxDiscount   = 0.10
)

// Order is a personalized purchase quote. It lives only as long as the reply
// that carries it.
type Order struct {
	OrderID     string  `json:"orderId"`
	PaymentLink string  `json:"paymentLink"`
	TotalAmount float64 `json:"totalAmount"`
}

// Synthesizer builds orders when a message is both routed to order
// management and carries an explicit purchase keyword.
type Synthesizer struct {
	basePrice  float64
	paymentURL string
	now        func() time.Time
	suffix     func() string
}

// NewSynthesizer creates a Synthesizer. Non-positive basePrice and an empty
// paymentURL fall back to the defaults.
func NewSynthesizer(basePrice float64, paymentURL string) *Synthesizer {
	if basePrice <= 0 {
		basePrice = DefaultBasePrice
	}
	if paymentURL == "" {
		paymentURL = DefaultPaymentURL
	}
	return &Synthesizer{
		basePrice:  basePrice,
		paymentURL: paymentURL,
		now:        time.Now,
		suffix:     randomSuffix,
	}
}

// BasePrice returns the configured device price.
func (s *Synthesizer) BasePrice() float64 { return s.basePrice }

// Synthesize returns an order for the message, or nil when the trigger does
// not hold.
func (s *Synthesizer) Synthesize(tag intent.AgentTag, message string, p *profile.CustomerProfile) *Order {
	if tag != intent.AgentOrderManagement || !intent.IsPurchaseAction(message) {
		return nil
	}
	return s.Quote(p)
}

// Quote prices a device for p unconditionally.
func (s *Synthesizer) Quote(p *profile.CustomerProfile) *Order {
	points := profile.Points(p)
	final := FinalPrice(s.basePrice, points)
	id := fmt.Sprintf("%s_%d_%s", idPrefix, s.now().UnixMilli(), s.suffix())

	var name string
	if p != nil {
		name = p.Name
	}
	plate := profile.PlateNumber(p)

	slog.Info("personalized order created",
		"order_id", id,
		"customer", name,
		"vehicle", plate,
		"loyalty_discount", Discount(points),
		"final_price", final,
	)

	return &Order{
		OrderID:     id,
		PaymentLink: s.paymentLink(id, final, name, plate),
		TotalAmount: final,
	}
}

// Discount converts loyalty points into taka off: one per ten points.
// Negative balances earn nothing.
func Discount(points int) int {
	if points <= 0 {
		return 0
	}
	return points / pointsPerTaka
}

// FinalPrice applies the loyalty discount, never going below 90% of base.
func FinalPrice(base float64, points int) float64 {
	return math.Max(base-float64(Discount(points)), base*(1-maxDiscount))
}

// paymentLink encodes every query value; customer names and plates are
// free text and routinely contain spaces and non-ASCII script.
func (s *Synthesizer) paymentLink(id string, amount float64, name, plate string) string {
	q := url.Values{}
	q.Set("order", id)
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	q.Set("customer", name)
	q.Set("vehicle", plate)

	u, err := url.Parse(s.paymentURL)
	if err != nil {
		return s.paymentURL + "?" + q.Encode()
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func randomSuffix() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:suffixLen])
}
