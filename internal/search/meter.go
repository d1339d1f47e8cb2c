package search

import (
	"fmt"

	"tutorial-scraper/internal/models"
)

// Quota costs charged by the platform per call category
const (
	SearchCost = 100 // per search page
	DetailCost = 1   // per detail batch, regardless of size
)

// Meter tracks quota units spent by one run. It is not safe for concurrent use;
// a run owns exactly one meter.
type Meter struct {
	budget int
	used   int
}

// NewMeter returns a meter that refuses charges past budget. A budget of zero or less
// means the meter only counts.
func NewMeter(budget int) *Meter {
	return &Meter{budget: budget}
}

// Charge books units for a call about to be made. It fails with ErrQuotaExceeded when
// the budget cannot cover the call, in which case nothing is booked.
func (m *Meter) Charge(units int) error {
	if m.budget > 0 && m.used+units > m.budget {
		return fmt.Errorf("%w: budget %d units, used %d, call needs %d", models.ErrQuotaExceeded, m.budget, m.used, units)
	}
	m.used += units
	return nil
}

// Used is the number of units booked so far
func (m *Meter) Used() int {
	return m.used
}

// Remaining is the unspent budget, or -1 when unlimited
func (m *Meter) Remaining() int {
	if m.budget <= 0 {
		return -1
	}
	return m.budget - m.used
}
