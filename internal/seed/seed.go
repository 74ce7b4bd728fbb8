package seed

import (
	"context"
	"errors"
	"fmt"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/service/identity"

	"github.com/sirupsen/logrus"
)

type accountCreator interface {
	Signup(ctx context.Context, in identity.SignupInput) (*domain.UserRef, error)
}

type lineCreator interface {
	Create(ctx context.Context, userID string, line domain.CartLine) (*domain.CartLine, error)
}

// Account is a demo login and the cart it starts with.
type Account struct {
	identity.SignupInput
	Cart []domain.CartLine
}

// DemoAccounts are created by cmd/seed. Cart lines mirror fakestoreapi products.
var DemoAccounts = []Account{
	{
		SignupInput: identity.SignupInput{Name: "Demo Shopper", Email: "demo@storefront.test", Password: "Demo1234"},
		Cart: []domain.CartLine{
			{ProductID: 1, Title: "Fjallraven - Foldsack No. 1 Backpack, Fits 15 Laptops", UnitPrice: "109.95", Quantity: 1,
				Image: "https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg"},
			{ProductID: 9, Title: "WD 2TB Elements Portable External Hard Drive - USB 3.0", UnitPrice: "64.00", Quantity: 2,
				Image: "https://fakestoreapi.com/img/61IBBVJvSDL._AC_SY879_.jpg"},
		},
	},
	{
		SignupInput: identity.SignupInput{Name: "Empty Cart", Email: "empty@storefront.test", Password: "Empty1234"},
	},
}

// Apply creates the accounts and their carts. Accounts that already exist are
// left untouched, so running it twice is harmless.
func Apply(ctx context.Context, accounts accountCreator, lines lineCreator, seeds []Account, logger logrus.FieldLogger) error {
	logger = logging.OrDiscard(logger)
	for _, s := range seeds {
		user, err := accounts.Signup(ctx, s.SignupInput)
		if err != nil {
			if alreadyRegistered(err) {
				logger.WithField("email", s.Email).Info("seed: account exists, skipping")
				continue
			}
			return fmt.Errorf("signup %s: %w", s.Email, err)
		}
		for _, line := range s.Cart {
			line.Quantity = domain.ClampQuantity(line.Quantity)
			if _, err := lines.Create(ctx, user.ID, line); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return fmt.Errorf("cart line %d for %s: %w", line.ProductID, s.Email, err)
			}
		}
		logger.WithFields(logrus.Fields{"email": s.Email, "lines": len(s.Cart)}).Info("seed: account created")
	}
	return nil
}

func alreadyRegistered(err error) bool {
	var de *domain.Error
	return errors.As(err, &de) && de.Kind == domain.KindValidation && de.Fields["email"] == "is already registered"
}
