package profile

// Loyalty tier labels. A balance strictly above goldThreshold is Gold.
const (
	TierGold   = "Gold"
	TierSilver = "Silver"

	goldThreshold = 100
)

// CustomerProfile is the caller-supplied customer record used to personalize
// a reply. It is never persisted or mutated by the core.
type CustomerProfile struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Language      string   `json:"language,omitempty"`
	Subscription  string   `json:"subscription,omitempty"`
	Devices       int      `json:"devices"`
	LoyaltyPoints int      `json:"loyaltyPoints"`
	TotalSpent    float64  `json:"totalSpent"`
	VehicleInfo   *Vehicle `json:"vehicleInfo,omitempty"`
}

// Vehicle identifies the tracked vehicle attached to a profile.
type Vehicle struct {
	PlateNumber string `json:"plateNumber"`
	Model       string `json:"model"`
	Color       string `json:"color,omitempty"`
}

// LoyaltyTier maps a point balance to its tier label.
func LoyaltyTier(points int) string {
	if points > goldThreshold {
		return TierGold
	}
	return TierSilver
}

// Points returns the loyalty balance of p, or 0 when p is nil.
func Points(p *CustomerProfile) int {
	if p == nil {
		return 0
	}
	return p.LoyaltyPoints
}

// PlateNumber returns the vehicle plate of p, or "" when either is absent.
func PlateNumber(p *CustomerProfile) string {
	if p == nil || p.VehicleInfo == nil {
		return ""
	}
	return p.VehicleInfo.PlateNumber
}
