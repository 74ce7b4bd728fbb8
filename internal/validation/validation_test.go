package validation

import (
	"errors"
	"testing"

	"storefront-sync/internal/domain"

	"github.com/go-playground/validator/v10"
)

type paymentForm struct {
	Email  string `json:"email" validate:"required,email"`
	Card   string `json:"cardNumber" validate:"required,cardnumber"`
	Expiry string `json:"expiry" validate:"required,expiry"`
	CVV    string `json:"cvv" validate:"required,cvv"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct("test", paymentForm{Email: "a@b.co", Card: "4242 4242 4242 4242", Expiry: "09/29", CVV: "123"})
	if err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
}

func TestStruct_FieldErrorsUseJSONNames(t *testing.T) {
	err := Struct("test", paymentForm{Email: "nope", Card: "12ab", Expiry: "13/29", CVV: ""})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *domain.Error")
	}
	for _, f := range []string{"email", "cardNumber", "expiry", "cvv"} {
		if _, ok := de.Fields[f]; !ok {
			t.Fatalf("expected field %s in %v", f, de.Fields)
		}
	}
	if de.Fields["cvv"] != "is required" {
		t.Fatalf("unexpected cvv message %q", de.Fields["cvv"])
	}
}

func TestMustRegister_PanicsOnBadTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an empty tag")
		}
	}()
	mustRegister(validator.New(), "", func(validator.FieldLevel) bool { return true })
}
