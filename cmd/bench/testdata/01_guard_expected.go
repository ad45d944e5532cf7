package accounts

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid account")

type Account struct {
	ID      string
	Email   string
	Balance int64
	Closed  bool
}

// Validate checks that an account can be used for transfers.
func Validate(a *Account) error {
	if a == nil || a.Closed {
		return ErrInvalid
	}
	if !strings.Contains(a.Email, "@") || a.Balance < 0 {
		return ErrInvalid
	}
	return nil
}

// Owner returns the part of the email before the @.
func Owner(a *Account) string {
	name, _, _ := strings.Cut(a.Email, "@")
	return name
}
