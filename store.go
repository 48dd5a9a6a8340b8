package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"paylink/models"
	"paylink/pkg/access"

	"gorm.io/gorm"
)

// gormStore backs access.Store with the access_tokens table. Every mutation
// is a single statement so the database's own constraints carry the
// concurrency guarantees.
type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) Create(ctx context.Context, rec access.Record) error {
	row := models.AccessToken{
		ProductID:       rec.ProductID,
		PaymentIntentID: rec.PaymentRef,
		Token:           rec.Token,
		ExpiresAt:       rec.ExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueConstraintError(err) {
			return access.ErrConflict
		}
		return err
	}
	return nil
}

func (s *gormStore) FindByToken(ctx context.Context, token string) (access.Record, error) {
	var row models.AccessToken
	err := s.db.WithContext(ctx).Preload("Product").Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return access.Record{}, access.ErrNotFound
	}
	if err != nil {
		return access.Record{}, err
	}
	return toRecord(&row), nil
}

func (s *gormStore) FindByPaymentRef(ctx context.Context, ref string) (access.Record, error) {
	var row models.AccessToken
	err := s.db.WithContext(ctx).Preload("Product").Where("payment_intent_id = ?", ref).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return access.Record{}, access.ErrNotFound
	}
	if err != nil {
		return access.Record{}, err
	}
	return toRecord(&row), nil
}

// MarkUsed sets used_at once; the IS NULL guard makes concurrent redemptions
// race harmlessly (the field only ever goes null -> timestamp).
func (s *gormStore) MarkUsed(ctx context.Context, token string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Zero updates is either an already-used token (fine) or a token
		// that does not exist.
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.AccessToken{}).Where("token = ?", token).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return access.ErrNotFound
		}
	}
	return nil
}

func toRecord(row *models.AccessToken) access.Record {
	rec := access.Record{
		Token:       row.Token,
		ProductID:   row.ProductID,
		PaymentRef:  row.PaymentIntentID,
		ProductName: row.Product.Name,
		ExpiresAt:   row.ExpiresAt,
		UsedAt:      row.UsedAt,
	}
	if row.Product.ProtectedURL != nil {
		rec.ProtectedURL = *row.Product.ProtectedURL
	}
	return rec
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "UNIQUE constraint")
}
