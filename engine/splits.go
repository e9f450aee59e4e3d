package engine

// Splits is the revenue division of one completed payment.
type Splits struct {
	OrganizerAmount int64 `json:"organizerAmount"`
	PlatformAmount  int64 `json:"platformAmount"`
}

// ComputeSplits divides total between organizer and platform. The rounding
// residue stays with the platform.
func ComputeSplits(total, organizerPercent int64) Splits {
	if organizerPercent < 0 {
		organizerPercent = 0
	}
	if organizerPercent > 100 {
		organizerPercent = 100
	}
	organizer := total * organizerPercent / 100
	return Splits{
		OrganizerAmount: organizer,
		PlatformAmount:  total - organizer,
	}
}
