package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OverpaymentError rejects a payment exceeding the remaining balance.
// It carries the remaining balance so callers can show the operator how
// much is actually still owed.
type OverpaymentError struct {
	RemainingEgp decimal.Decimal
	AttemptedEgp decimal.Decimal
}

// Error implements the error interface
func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s EGP exceeds remaining balance of %s EGP",
		e.AttemptedEgp.StringFixed(2), e.RemainingEgp.StringFixed(2))
}

// Code returns the domain error code for HTTP mapping
func (e *OverpaymentError) Code() string {
	return "OVERPAYMENT"
}
