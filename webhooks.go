package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"paylink/pkg/access"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

const maxWebhookBody = 64 * 1024

// webhookHandler verifies Stripe webhook signatures and mints access tokens
// for completed checkouts. Minting here and in /api/success is safe because
// both paths key on the same session id; whichever arrives second re-issues.
func webhookHandler(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing stripe-signature header"})
		return
	}
	if webhookSecret == "" {
		log.Println("webhook: STRIPE_WEBHOOK_SECRET is not set")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook secret not configured"})
		return
	}

	// The endpoint's API version is configured in the Stripe dashboard and
	// need not match the SDK pin; signature verification alone gates the event.
	event, err := webhook.ConstructEventWithOptions(payload, signature, webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Printf("webhook: signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		handleCheckoutCompleted(c, &sess)

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
			log.Printf("webhook: payment intent succeeded id=%s amount=%d", pi.ID, pi.Amount)
		}

	case "account.updated":
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err == nil {
			log.Printf("webhook: connected account updated id=%s charges_enabled=%v payouts_enabled=%v",
				acct.ID, acct.ChargesEnabled, acct.PayoutsEnabled)
		}

	default:
		log.Printf("webhook: unhandled event type: %s", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func handleCheckoutCompleted(c *gin.Context, sess *stripe.CheckoutSession) {
	// checkout.session.completed also fires for async payment methods while
	// the session is still unpaid; the entitlement waits for settlement
	// (checkout.session.async_payment_succeeded re-delivers as paid).
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Printf("webhook: session %s completed but payment_status=%s, not minting", sess.ID, sess.PaymentStatus)
		return
	}
	log.Printf("webhook: payment completed session=%s amount=%d", sess.ID, sess.AmountTotal)

	productID := sess.Metadata["product_id"]
	if productID == "" {
		return
	}
	var p struct {
		ProtectedURL *string
	}
	if err := db.Table("products").Select("protected_url").Where("id = ?", productID).Take(&p).Error; err != nil {
		log.Printf("webhook: unknown product %s on session %s", productID, sess.ID)
		return
	}
	if p.ProtectedURL == nil {
		return
	}

	minter := &access.Minter{Store: tokenStore}
	rec, err := minter.Mint(c.Request.Context(), productID, sess.ID)
	if err != nil {
		// The success redirect is the other mint path, so a webhook failure
		// is not fatal for the buyer. Stripe retries on non-2xx, but the
		// event itself was valid; log and ack.
		log.Printf("webhook: mint failed for session %s: %v", sess.ID, err)
		return
	}
	log.Printf("webhook: access token ready for session %s (expires %s)", sess.ID, rec.ExpiresAt.Format("2006-01-02 15:04:05"))
}
