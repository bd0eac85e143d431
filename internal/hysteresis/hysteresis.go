// Package hysteresis decides certificate-expiry alerts. Each tier alert is
// sent once per approach to expiry; a renewal that lifts the remaining days
// back above the upper tier re-arms both tiers.
package hysteresis

const (
	Tier30Days = 30
	Tier10Days = 10
)

type Alert int

const (
	None Alert = iota
	Tier30
	Tier10
)

func (a Alert) String() string {
	switch a {
	case Tier30:
		return "tier30"
	case Tier10:
		return "tier10"
	default:
		return "none"
	}
}

// Decision is the new flag state plus the alert to send, if any.
type Decision struct {
	AlertSent30 bool
	AlertSent10 bool
	Alert       Alert
}

// Evaluate applies the tier rules in order; the first match wins.
// daysRemaining <= 0 (already expired) falls into the tier-10 bucket.
func Evaluate(daysRemaining int, alertSent30, alertSent10 bool) Decision {
	switch {
	case daysRemaining > Tier30Days:
		return Decision{}
	case daysRemaining > Tier10Days && !alertSent30:
		return Decision{AlertSent30: true, AlertSent10: alertSent10, Alert: Tier30}
	case daysRemaining <= Tier10Days && !alertSent10:
		return Decision{AlertSent30: true, AlertSent10: true, Alert: Tier10}
	default:
		return Decision{AlertSent30: alertSent30, AlertSent10: alertSent10, Alert: None}
	}
}
