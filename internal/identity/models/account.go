package models

import (
	"time"

	id "reitvest/pkg/domain"
)

// Account is one registered API credential. The principal is derived from
// the account name, so the same name always authenticates to the same
// ledger identity.
type Account struct {
	Principal  id.Principal
	Name       string
	SecretHash string
	CreatedAt  time.Time
}

func NewAccount(name, secretHash string, now time.Time) *Account {
	return &Account{
		Principal:  id.DerivePrincipal(name),
		Name:       name,
		SecretHash: secretHash,
		CreatedAt:  now,
	}
}

// Clone returns a copy so store reads never alias live state.
func (a *Account) Clone() *Account {
	out := *a
	return &out
}
