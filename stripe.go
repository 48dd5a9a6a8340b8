package main

import (
	"log"
	"math"
	"os"

	"paylink/models"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/account"
	"github.com/stripe/stripe-go/v78/accountlink"
	"github.com/stripe/stripe-go/v78/checkout/session"
)

// Platform fee: 5% of each purchase, collected as an application fee on the
// connected account's checkout session.
const platformFeePercent = 5

func platformFee(amountInCents int64) int64 {
	return int64(math.Round(float64(amountInCents) * platformFeePercent / 100))
}

func initStripe() {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		log.Fatal("STRIPE_SECRET_KEY is not set")
	}
	stripe.Key = key
}

// createConnectAccount starts a standard Connect account for a creator.
func createConnectAccount(email string) (*stripe.Account, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeStandard)),
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	return account.New(params)
}

func createOnboardingLink(accountID, refreshURL, returnURL string) (*stripe.AccountLink, error) {
	return accountlink.New(&stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	})
}

func retrieveAccount(accountID string) (*stripe.Account, error) {
	return account.GetByID(accountID, nil)
}

// createCheckoutSession builds a one-off payment session on the product's
// connected account. The product id travels in the session metadata so the
// webhook can mint without a second lookup path.
func createCheckoutSession(p *models.Product, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.Name),
					},
					UnitAmount: stripe.Int64(p.PriceInCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(platformFee(p.PriceInCents)),
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.AddMetadata("product_id", p.ID)
	params.SetStripeAccount(p.StripeAccountID)
	return session.New(params)
}

func retrieveCheckoutSession(sessionID, accountID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.SetStripeAccount(accountID)
	return session.Get(sessionID, params)
}
