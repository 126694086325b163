package funding

import (
	"fmt"
	"math"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// breakdownTolerance is the largest relative gap allowed between the cost
// breakdown total and the requested amount. The gap must be strictly below it.
var breakdownTolerance = decimal.NewFromFloat(0.01)

// CostBreakdown itemizes a funding request into six cost components,
// all in integral currency units.
type CostBreakdown struct {
	Food        int64 `json:"food"`
	Operational int64 `json:"operational"`
	Transport   int64 `json:"transport"`
	Utility     int64 `json:"utility"`
	Staff       int64 `json:"staff"`
	Other       int64 `json:"other"`
}

// Total returns the sum of all components. It is only meaningful for a
// breakdown that passed Validate.
func (b CostBreakdown) Total() int64 {
	return b.Food + b.Operational + b.Transport + b.Utility + b.Staff + b.Other
}

// exactTotal sums the components without wrapping
func (b CostBreakdown) exactTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.components() {
		total = total.Add(decimal.NewFromInt(c.value))
	}
	return total
}

var maxAmount = decimal.NewFromInt(math.MaxInt64)

type costComponent struct {
	name  string
	value int64
}

func (b CostBreakdown) components() []costComponent {
	return []costComponent{
		{"food", b.Food},
		{"operational", b.Operational},
		{"transport", b.Transport},
		{"utility", b.Utility},
		{"staff", b.Staff},
		{"other", b.Other},
	}
}

// Validate checks the breakdown against the requested amount
func (b CostBreakdown) Validate(requestedAmount int64) error {
	if requestedAmount <= 0 {
		return shared.NewValidationError("INVALID_AMOUNT", "Requested amount must be positive")
	}
	for _, c := range b.components() {
		if c.value < 0 {
			return shared.NewValidationError("INVALID_COST_BREAKDOWN",
				fmt.Sprintf("Cost component %s cannot be negative", c.name))
		}
	}

	total := b.exactTotal()
	if total.GreaterThan(maxAmount) {
		return shared.NewValidationError("INVALID_COST_BREAKDOWN", "Cost breakdown total is out of range")
	}
	requested := decimal.NewFromInt(requestedAmount)
	ratio := total.Sub(requested).Abs().Div(requested)
	if ratio.GreaterThanOrEqual(breakdownTolerance) {
		return shared.NewValidationError("COST_BREAKDOWN_MISMATCH",
			fmt.Sprintf("Cost breakdown totals %s but requested amount is %d", total, requestedAmount))
	}
	return nil
}
