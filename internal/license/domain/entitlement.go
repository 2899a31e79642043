package domain

// Entitlement is the answer to "may this organization create one more
// car right now".
type Entitlement struct {
	Allowed      bool    `json:"allowed"`
	Remaining    int     `json:"remaining"`
	UsagePercent float64 `json:"usage_percent"`
}

// Evaluate computes the entitlement from a license and the current car
// count. It performs no I/O. A zero car limit reports full usage rather
// than dividing by zero.
func Evaluate(license *License, currentCount int64) Entitlement {
	if license == nil {
		return Entitlement{Allowed: false, Remaining: 0, UsagePercent: 100}
	}

	limit := license.CarLimit
	if limit <= 0 {
		return Entitlement{Allowed: false, Remaining: 0, UsagePercent: 100}
	}

	remaining := limit - int(currentCount)
	if remaining < 0 {
		remaining = 0
	}

	usage := float64(currentCount) / float64(limit) * 100
	if usage > 100 {
		usage = 100
	}

	return Entitlement{
		Allowed:      license.IsActive && currentCount < int64(limit),
		Remaining:    remaining,
		UsagePercent: usage,
	}
}
