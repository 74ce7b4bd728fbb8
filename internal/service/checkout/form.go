package checkout

import (
	"strings"

	"storefront-sync/internal/domain"
)

// AddressForm is the raw checkout form. The card number and CVV never leave
// this struct unmasked.
type AddressForm struct {
	FullName   string `json:"fullName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	CardNumber string `json:"cardNumber" validate:"required,cardnumber"`
	Expiry     string `json:"expiry" validate:"required,expiry"`
	CVV        string `json:"cvv" validate:"required,cvv"`
}

func (f AddressForm) trimmed() AddressForm {
	return AddressForm{
		FullName:   strings.TrimSpace(f.FullName),
		Email:      strings.TrimSpace(f.Email),
		Street:     strings.TrimSpace(f.Street),
		City:       strings.TrimSpace(f.City),
		Province:   strings.TrimSpace(f.Province),
		PostalCode: strings.TrimSpace(f.PostalCode),
		CardNumber: strings.TrimSpace(f.CardNumber),
		Expiry:     strings.TrimSpace(f.Expiry),
		CVV:        strings.TrimSpace(f.CVV),
	}
}

// Address converts a validated form into the stored shape.
func (f AddressForm) Address() domain.Address {
	return domain.Address{
		FullName:         f.FullName,
		Email:            f.Email,
		Street:           f.Street,
		City:             f.City,
		Province:         f.Province,
		PostalCode:       f.PostalCode,
		CardNumberMasked: domain.MaskCardNumber(f.CardNumber),
		Expiry:           f.Expiry,
		CVVPresent:       f.CVV != "",
	}
}
