package enums

import "fmt"

// CreditTransactionType classifies movements on a user's credit balance.
type CreditTransactionType string

const (
	CreditTransactionDeduction CreditTransactionType = "deduction"
	CreditTransactionRefund    CreditTransactionType = "refund"
	CreditTransactionTopUp     CreditTransactionType = "top_up"
)

var validCreditTransactionTypes = []CreditTransactionType{
	CreditTransactionDeduction,
	CreditTransactionRefund,
	CreditTransactionTopUp,
}

// String implements fmt.Stringer.
func (c CreditTransactionType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CreditTransactionType.
func (c CreditTransactionType) IsValid() bool {
	for _, candidate := range validCreditTransactionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCreditTransactionType converts raw input into a CreditTransactionType.
func ParseCreditTransactionType(value string) (CreditTransactionType, error) {
	for _, candidate := range validCreditTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit transaction type %q", value)
}
