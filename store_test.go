package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"paylink/models"
	"paylink/pkg/access"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB wires the package globals to an in-memory sqlite database so
// handlers and the store run against real SQL constraints.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache DSN keeps the same in-memory database visible to
	// every pooled connection; a unique name isolates tests from each other.
	dsn := fmt.Sprintf("file:paylink_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Product{}, &models.AccessToken{}))
	db = gdb
	tokenStore = &gormStore{db: gdb}
	return gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, protectedURL string) models.Product {
	t.Helper()
	p := models.Product{
		ID:              generateID(),
		StripeAccountID: "acct_test",
		Name:            "Synth Preset Pack",
		PriceInCents:    900,
		DestinationURL:  "https://example.com/thank-you",
		IsActive:        true,
	}
	if protectedURL != "" {
		p.ProtectedURL = &protectedURL
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func TestGormStoreCreateConflict(t *testing.T) {
	gdb := openTestDB(t)
	p := seedProduct(t, gdb, "https://cdn.example.com/presets.zip")
	store := &gormStore{db: gdb}
	ctx := context.Background()

	rec := access.Record{
		Token:      "1111111111111111111111111111111111111111111111111111111111111111",
		ProductID:  p.ID,
		PaymentRef: "cs_store_1",
		ExpiresAt:  time.Now().Add(access.TokenTTL),
	}
	require.NoError(t, store.Create(ctx, rec))

	// Same payment reference, different token: the unique index answers.
	dup := rec
	dup.Token = "2222222222222222222222222222222222222222222222222222222222222222"
	err := store.Create(ctx, dup)
	require.ErrorIs(t, err, access.ErrConflict)

	var count int64
	gdb.Model(&models.AccessToken{}).Where("payment_intent_id = ?", "cs_store_1").Count(&count)
	require.EqualValues(t, 1, count)
}

func TestGormStoreFindByTokenJoinsProduct(t *testing.T) {
	gdb := openTestDB(t)
	p := seedProduct(t, gdb, "https://cdn.example.com/presets.zip")
	store := &gormStore{db: gdb}
	ctx := context.Background()

	rec := access.Record{
		Token:      "3333333333333333333333333333333333333333333333333333333333333333",
		ProductID:  p.ID,
		PaymentRef: "cs_store_2",
		ExpiresAt:  time.Now().Add(access.TokenTTL),
	}
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.FindByToken(ctx, rec.Token)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.ProductName)
	require.Equal(t, *p.ProtectedURL, got.ProtectedURL)
	require.Equal(t, "cs_store_2", got.PaymentRef)
	require.Nil(t, got.UsedAt)

	_, err = store.FindByToken(ctx, "missing")
	require.ErrorIs(t, err, access.ErrNotFound)

	got, err = store.FindByPaymentRef(ctx, "cs_store_2")
	require.NoError(t, err)
	require.Equal(t, rec.Token, got.Token)

	_, err = store.FindByPaymentRef(ctx, "cs_missing")
	require.ErrorIs(t, err, access.ErrNotFound)
}

func TestGormStoreMarkUsedSetsOnce(t *testing.T) {
	gdb := openTestDB(t)
	p := seedProduct(t, gdb, "https://cdn.example.com/presets.zip")
	store := &gormStore{db: gdb}
	ctx := context.Background()

	rec := access.Record{
		Token:      "4444444444444444444444444444444444444444444444444444444444444444",
		ProductID:  p.ID,
		PaymentRef: "cs_store_3",
		ExpiresAt:  time.Now().Add(access.TokenTTL),
	}
	require.NoError(t, store.Create(ctx, rec))

	first := time.Now().Truncate(time.Second)
	require.NoError(t, store.MarkUsed(ctx, rec.Token, first))

	got, err := store.FindByToken(ctx, rec.Token)
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)

	// A later call must not move the timestamp.
	require.NoError(t, store.MarkUsed(ctx, rec.Token, first.Add(time.Hour)))
	again, err := store.FindByToken(ctx, rec.Token)
	require.NoError(t, err)
	require.NotNil(t, again.UsedAt)
	require.True(t, again.UsedAt.Equal(*got.UsedAt))

	// Unknown token is ErrNotFound, matching the in-memory store.
	err = store.MarkUsed(ctx, "5555555555555555555555555555555555555555555555555555555555555555", first)
	require.ErrorIs(t, err, access.ErrNotFound)
}
