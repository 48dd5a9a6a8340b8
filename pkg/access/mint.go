package access

import (
	"context"
	"errors"
	"time"
)

// TokenTTL is the fixed validity window; it is not configurable per call.
const TokenTTL = 24 * time.Hour

// Minter creates at most one access token per payment reference. The store
// and clock are injected so the policy can be exercised against an in-memory
// store with a fake clock.
type Minter struct {
	Store Store
	Now   func() time.Time
}

func (m *Minter) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Mint returns the access token for paymentRef, creating it on first call.
// Duplicate and concurrent calls for the same reference (webhook retries,
// back-button re-submits) all return the same token: the insert races on the
// store's unique constraint and the loser re-fetches the winner's row.
func (m *Minter) Mint(ctx context.Context, productID, paymentRef string) (Record, error) {
	if rec, err := m.Store.FindByPaymentRef(ctx, paymentRef); err == nil {
		return rec, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	token, err := NewToken()
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Token:      token,
		ProductID:  productID,
		PaymentRef: paymentRef,
		ExpiresAt:  m.now().Add(TokenTTL),
	}
	switch err := m.Store.Create(ctx, rec); {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrConflict):
		// Lost the race to a concurrent mint for the same payment.
		return m.Store.FindByPaymentRef(ctx, paymentRef)
	default:
		return Record{}, err
	}
}
