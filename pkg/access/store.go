package access

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the token or payment reference has no record.
	ErrNotFound = errors.New("access token not found")
	// ErrConflict means the payment reference already has a token. Callers
	// treat it as "fetch the existing one", not as a failure.
	ErrConflict = errors.New("payment reference already has a token")
)

// Record is a stored access token together with the product fields a
// redemption response needs.
type Record struct {
	Token        string
	ProductID    string
	PaymentRef   string
	ProductName  string
	ProtectedURL string
	ExpiresAt    time.Time
	UsedAt       *time.Time
}

// Store persists access tokens. Create must enforce uniqueness of the payment
// reference atomically in the backing store; the mint policy relies on
// ErrConflict to recover from concurrent inserts, so a check-then-insert
// implementation would reintroduce the race.
type Store interface {
	Create(ctx context.Context, rec Record) error
	FindByToken(ctx context.Context, token string) (Record, error)
	FindByPaymentRef(ctx context.Context, ref string) (Record, error)
	// MarkUsed sets the used timestamp if it is still unset. An already-set
	// timestamp is left alone and is not an error; an unknown token is
	// ErrNotFound.
	MarkUsed(ctx context.Context, token string, at time.Time) error
}
