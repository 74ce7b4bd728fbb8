package domain

import "time"

// Account is a registered storefront user with its password hash.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Ref strips credentials from the account.
func (a Account) Ref() UserRef {
	return UserRef{ID: a.ID, Email: a.Email, Name: a.Name}
}
