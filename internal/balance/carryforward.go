package balance

import "fmt"

// Carry-forward caps for annual leave.
const (
	// IndividualCap limits how many days one work year can pass to the
	// next, regardless of how much was left unused.
	IndividualCap = 20
	// TotalCap limits allocated + carriedForward in the receiving year.
	TotalCap = 40
)

// Transfer is the outcome of a carry-forward calculation. Reason is for
// audit logs only, never control flow.
type Transfer struct {
	Days   int
	Reason string
}

// CalculateCarryForward computes how many annual days move from the
// previous work year into one with the given allocation. Sick and casual
// leave never carry forward, so this applies to the annual bucket only.
func CalculateCarryForward(prev CategoryBalance, newAllocation int) Transfer {
	if prev.Remaining <= 0 {
		return Transfer{Days: 0, Reason: "no unused days to carry forward"}
	}

	individualCap := prev.Remaining
	if individualCap > IndividualCap {
		individualCap = IndividualCap
	}

	headroom := TotalCap - newAllocation
	if headroom < 0 {
		headroom = 0
	}

	days := individualCap
	if days > headroom {
		days = headroom
	}

	var reason string
	switch {
	case prev.Remaining > IndividualCap && days == IndividualCap:
		reason = fmt.Sprintf("carrying forward %d of %d remaining days, capped at %d per transfer", days, prev.Remaining, IndividualCap)
	case days < prev.Remaining:
		reason = fmt.Sprintf("carrying forward %d of %d remaining days, capped by the %d-day total limit (%d + %d = %d)",
			days, prev.Remaining, TotalCap, newAllocation, days, newAllocation+days)
	default:
		reason = fmt.Sprintf("carrying forward all %d remaining days", days)
	}

	return Transfer{Days: days, Reason: reason}
}
