package access

import (
	"context"
	"errors"
	"time"
)

// Outcome is the terminal state of a redemption attempt.
type Outcome int

const (
	Invalid Outcome = iota // token unknown
	Expired                // token was valid once, window has passed
	Valid
)

// Result carries what a redemption response needs. URL, ProductName and
// UsedBefore are only meaningful when Outcome is Valid.
type Result struct {
	Outcome     Outcome
	URL         string
	ProductName string
	UsedBefore  bool
}

// Redeemer validates tokens against the clock and the use-history.
type Redeemer struct {
	Store Store
	Now   func() time.Time
}

func (r *Redeemer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Redeem resolves a token to its protected URL. Redemption does not consume
// the token: the expiry window is the sole access boundary, and UsedBefore is
// informational so the caller can warn about shared links. An unknown token
// and a malformed token are both Invalid; only the clock produces Expired.
func (r *Redeemer) Redeem(ctx context.Context, token string) (Result, error) {
	rec, err := r.Store.FindByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return Result{Outcome: Invalid}, nil
	}
	if err != nil {
		return Result{}, err
	}

	now := r.now()
	if now.After(rec.ExpiresAt) {
		return Result{Outcome: Expired}, nil
	}

	usedBefore := rec.UsedAt != nil
	// Set-once; a concurrent redemption marking first does not change this
	// call's outcome.
	if err := r.Store.MarkUsed(ctx, token, now); err != nil {
		return Result{}, err
	}
	return Result{
		Outcome:     Valid,
		URL:         rec.ProtectedURL,
		ProductName: rec.ProductName,
		UsedBefore:  usedBefore,
	}, nil
}
