package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time past the expiry window.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func seedToken(t *testing.T, store Store, clock *fakeClock) Record {
	t.Helper()
	rec := Record{
		Token:        "f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0",
		ProductID:    "p1",
		PaymentRef:   "cs_test_redeem",
		ProductName:  "Indie Game Asset Pack",
		ProtectedURL: "https://cdn.example.com/pack.zip",
		ExpiresAt:    clock.now.Add(TokenTTL),
	}
	require.NoError(t, store.Create(context.Background(), rec))
	return rec
}

func TestRedeemLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	rec := seedToken(t, store, clock)
	r := &Redeemer{Store: store, Now: clock.Now}
	ctx := context.Background()

	// First redemption at +1h: valid, not used before.
	clock.Advance(time.Hour)
	res, err := r.Redeem(ctx, rec.Token)
	require.NoError(t, err)
	require.Equal(t, Valid, res.Outcome)
	require.Equal(t, rec.ProtectedURL, res.URL)
	require.Equal(t, rec.ProductName, res.ProductName)
	require.False(t, res.UsedBefore)

	// Second redemption at +2h: still valid (multi-use), flagged as used.
	clock.Advance(time.Hour)
	res, err = r.Redeem(ctx, rec.Token)
	require.NoError(t, err)
	require.Equal(t, Valid, res.Outcome)
	require.Equal(t, rec.ProtectedURL, res.URL)
	require.True(t, res.UsedBefore)

	// At +25h the window has closed regardless of prior use.
	clock.Advance(23 * time.Hour)
	res, err = r.Redeem(ctx, rec.Token)
	require.NoError(t, err)
	require.Equal(t, Expired, res.Outcome)

	// Unknown token is Invalid, not Expired.
	res, err = r.Redeem(ctx, "garbage")
	require.NoError(t, err)
	require.Equal(t, Invalid, res.Outcome)
}

func TestRedeemDeterministicWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	rec := seedToken(t, store, clock)
	r := &Redeemer{Store: store, Now: clock.Now}

	for i := 0; i < 5; i++ {
		clock.Advance(3 * time.Hour)
		res, err := r.Redeem(context.Background(), rec.Token)
		require.NoError(t, err)
		require.Equal(t, Valid, res.Outcome)
		require.Equal(t, rec.ProtectedURL, res.URL)
		require.Equal(t, rec.ProductName, res.ProductName)
		require.Equal(t, i > 0, res.UsedBefore)
	}
}

func TestRedeemExpiredNeverUsed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	rec := seedToken(t, store, clock)
	r := &Redeemer{Store: store, Now: clock.Now}

	clock.Advance(TokenTTL + time.Minute)
	res, err := r.Redeem(context.Background(), rec.Token)
	require.NoError(t, err)
	require.Equal(t, Expired, res.Outcome)

	// Expiry is checked before the used flag is touched.
	stored, err := store.FindByToken(context.Background(), rec.Token)
	require.NoError(t, err)
	require.Nil(t, stored.UsedAt)
}
