// Package billing computes storage charges for a locker stay.
package billing

import (
	"time"

	"github.com/lockerhub/server/internal/model"
)

// DefaultRatePerHour is the deployment-wide rate when none is configured
var DefaultRatePerHour = model.Units(50)

// MaxRatePerHour bounds configured and per-deposit rates
var MaxRatePerHour = model.Units(10_000)

// ValidRate reports whether rate is usable as an hourly rate
func ValidRate(rate model.Money) bool {
	return rate > 0 && rate <= MaxRatePerHour
}

// BillableHours returns the number of started hours between storedAt and endedAt.
// Every partial hour counts as a full one and a stay is never billed below one hour.
func BillableHours(storedAt, endedAt time.Time) int64 {
	elapsed := endedAt.Sub(storedAt)
	if elapsed <= 0 {
		return 1
	}
	hours := int64(elapsed / time.Hour)
	if elapsed%time.Hour != 0 {
		hours++
	}
	return hours
}

// Calculate returns the amount owed for a stay from storedAt to endedAt at ratePerHour.
// The product saturates instead of wrapping, so a long stay never bills less than a short one.
func Calculate(storedAt, endedAt time.Time, ratePerHour model.Money) model.Money {
	return ratePerHour.Mul(BillableHours(storedAt, endedAt))
}
