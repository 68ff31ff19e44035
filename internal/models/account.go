package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind is the closed set of account types.
type AccountKind string

const (
	AccountChecking AccountKind = "CHECKING"
	AccountSavings  AccountKind = "SAVINGS"
)

// ParseAccountKind converts a raw value into an AccountKind.
func ParseAccountKind(s string) (AccountKind, error) {
	switch k := AccountKind(s); k {
	case AccountChecking, AccountSavings:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown account kind %q", ErrValidation, s)
	}
}

const (
	// MoneyScale is the number of fractional digits kept for balances, amounts and limits.
	MoneyScale = 2
	// RateScale is the number of fractional digits kept for interest rates.
	RateScale = 4
)

var (
	// MaxMoney is the exclusive bound on the magnitude of any stored money value.
	MaxMoney = decimal.New(1, 18)
	// MaxRate is the exclusive upper bound of an interest rate, in percent.
	MaxRate = decimal.New(1, 5)
)

// HasScale reports whether d has at most places fractional digits.
func HasScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// InMoneyRange reports whether d fits a stored money column.
func InMoneyRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(MaxMoney)
}

// Account represents a client's bank account
type Account struct {
	ID             int64               `json:"id"`
	ClientID       int64               `json:"client_id"`
	Kind           AccountKind         `json:"kind"`
	Balance        decimal.Decimal     `json:"balance"`
	InterestRate   decimal.NullDecimal `json:"interest_rate"`   // SAVINGS only, percent
	OverdraftLimit decimal.NullDecimal `json:"overdraft_limit"` // CHECKING only
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// OverdraftFloor is the lowest balance a CHECKING account may reach.
// An unset limit means no overdraft.
func (a *Account) OverdraftFloor() decimal.Decimal {
	if !a.OverdraftLimit.Valid {
		return decimal.Zero
	}
	return a.OverdraftLimit.Decimal.Neg()
}

// Validate checks the kind-specific field invariants.
func (a *Account) Validate() error {
	if !InMoneyRange(a.Balance) {
		return fmt.Errorf("%w: balance out of range", ErrValidation)
	}
	switch a.Kind {
	case AccountChecking:
		if a.InterestRate.Valid {
			return fmt.Errorf("%w: interest rate is only allowed on savings accounts", ErrValidation)
		}
		if a.OverdraftLimit.Valid {
			limit := a.OverdraftLimit.Decimal
			if limit.IsNegative() {
				return fmt.Errorf("%w: overdraft limit must not be negative", ErrValidation)
			}
			if !HasScale(limit, MoneyScale) {
				return fmt.Errorf("%w: overdraft limit has more than %d decimal places", ErrValidation, MoneyScale)
			}
			if !InMoneyRange(limit) {
				return fmt.Errorf("%w: overdraft limit out of range", ErrValidation)
			}
		}
		if a.Balance.LessThan(a.OverdraftFloor()) {
			return fmt.Errorf("%w: balance below overdraft limit", ErrValidation)
		}
	case AccountSavings:
		if a.OverdraftLimit.Valid {
			return fmt.Errorf("%w: overdraft limit is only allowed on checking accounts", ErrValidation)
		}
		if a.InterestRate.Valid {
			rate := a.InterestRate.Decimal
			if rate.IsNegative() {
				return fmt.Errorf("%w: interest rate must not be negative", ErrValidation)
			}
			if !HasScale(rate, RateScale) {
				return fmt.Errorf("%w: interest rate has more than %d decimal places", ErrValidation, RateScale)
			}
			if !rate.LessThan(MaxRate) {
				return fmt.Errorf("%w: interest rate must be below %s", ErrValidation, MaxRate)
			}
		}
	default:
		return fmt.Errorf("%w: unknown account kind %q", ErrValidation, a.Kind)
	}
	return nil
}
