package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The pending product form crosses the Stripe onboarding redirect in a
// browser cookie. Signing it keeps a creator from editing the price or
// destination while off-site.
const (
	formCookieName = "paylink_form"
	formCookieTTL  = time.Hour
)

type onboardForm struct {
	Name           string
	PriceInCents   int64
	DestinationURL string
	ProtectedURL   string
	Email          string
}

func encodeFormState(f onboardForm) (string, error) {
	claims := jwt.MapClaims{
		"name":  f.Name,
		"price": f.PriceInCents,
		"dest":  f.DestinationURL,
		"exp":   time.Now().Add(formCookieTTL).Unix(),
	}
	if f.ProtectedURL != "" {
		claims["prot"] = f.ProtectedURL
	}
	if f.Email != "" {
		claims["email"] = f.Email
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(formStateSecret)
}

func decodeFormState(value string) (onboardForm, error) {
	token, err := jwt.Parse(value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return formStateSecret, nil
	})
	if err != nil || !token.Valid {
		return onboardForm{}, fmt.Errorf("invalid form state")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return onboardForm{}, fmt.Errorf("invalid form state claims")
	}
	f := onboardForm{}
	f.Name, _ = claims["name"].(string)
	f.DestinationURL, _ = claims["dest"].(string)
	f.ProtectedURL, _ = claims["prot"].(string)
	f.Email, _ = claims["email"].(string)
	if price, ok := claims["price"].(float64); ok {
		f.PriceInCents = int64(price)
	}
	if f.Name == "" || f.PriceInCents == 0 || f.DestinationURL == "" {
		return onboardForm{}, fmt.Errorf("incomplete form state")
	}
	return f, nil
}
