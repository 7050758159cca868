package repository

import (
	"errors"
	"math"
)

var (
	// ErrNotFound covers both a missing record and a record owned by
	// someone else; callers must not be able to tell the two apart.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidAmount is returned when an amount is not a positive number.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateCategory is returned on a category name collision.
	ErrDuplicateCategory = errors.New("category already exists")
)

// validAmount reports whether an amount is a positive finite number.
// NaN compares false against <= 0, so it needs an explicit reject.
func validAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}
