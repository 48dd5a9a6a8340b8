package main

import (
	"log"
	"os"
	"strings"

	"paylink/models"
	"paylink/pkg/access"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	db         *gorm.DB
	tokenStore access.Store
)

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others.
		// Products first; access_tokens carries the FK to it.
		if err := db.AutoMigrate(&models.Product{}); err != nil {
			log.Printf("migration warning (products): %v", err)
		}
		if err := db.AutoMigrate(&models.AccessToken{}); err != nil {
			log.Printf("migration warning (access_tokens): %v", err)
		}
	}
	tokenStore = &gormStore{db: db}
	seedDB()
}

// seedDB inserts a demo product for local development when SEED_DEMO=1.
func seedDB() {
	if os.Getenv("SEED_DEMO") != "1" {
		return
	}
	var count int64
	db.Model(&models.Product{}).Where("name = ?", "Demo Product").Count(&count)
	if count > 0 {
		return
	}
	protected := "https://example.com/files/demo.zip"
	p := models.Product{
		ID:              generateID(),
		StripeAccountID: "acct_demo",
		Name:            "Demo Product",
		PriceInCents:    500,
		DestinationURL:  "https://example.com/thank-you",
		ProtectedURL:    &protected,
		IsActive:        true,
	}
	if err := db.Create(&p).Error; err != nil {
		log.Printf("failed to seed demo product: %v", err)
	} else {
		log.Println("Seeded demo product:", p.ID)
	}
}
