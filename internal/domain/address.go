package domain

import "strings"

// Address is the shipping and payment record kept per user. Card numbers are
// stored masked and the CVV only as a presence flag.
type Address struct {
	RemoteRecordID   string `json:"remoteRecordId,omitempty"`
	FullName         string `json:"fullName" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Street           string `json:"street" validate:"required"`
	City             string `json:"city" validate:"required"`
	Province         string `json:"province" validate:"required"`
	PostalCode       string `json:"postalCode" validate:"required"`
	CardNumberMasked string `json:"cardNumberMasked" validate:"required"`
	Expiry           string `json:"expiry" validate:"required"`
	CVVPresent       bool   `json:"cvvPresent"`
}

// IsZero reports whether no field has been filled.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MaskCardNumber keeps the last four digits and replaces the rest with '*'.
// Separators are dropped.
func MaskCardNumber(number string) string {
	var digits []rune
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 4 {
		return string(digits)
	}
	return strings.Repeat("*", len(digits)-4) + string(digits[len(digits)-4:])
}
