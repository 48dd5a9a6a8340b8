package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"paylink/models"
	"paylink/pkg/access"
	"paylink/pkg/urlkind"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/api/onboard", onboardHandler)
	r.GET("/api/onboard/refresh", onboardRefreshHandler)
	r.POST("/api/onboard/retry", onboardRetryHandler)
	r.GET("/api/callback", callbackHandler)
	r.POST("/api/checkout", checkoutHandler)
	r.GET("/api/product/:id", productHandler)
	r.OPTIONS("/api/product/:id", productOptionsHandler)
	r.GET("/api/success", successHandler)
	r.POST("/api/access", mintAccessHandler)
	r.GET("/api/access", verifyAccessHandler)
	r.POST("/api/webhooks", webhookHandler)
	r.GET("/pay/:id", payPageHandler)
	r.GET("/created", createdPageHandler)
	r.GET("/access/:token", accessPageHandler)
	r.Static("/public", "./public")
}

// appURL returns the externally visible base URL (no trailing slash).
func appURL() string {
	if v := os.Getenv("APP_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8081"
}

// generateID produces a 32-char hex product id (UUID with dashes stripped).
func generateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// --- onboarding ---

type onboardRequest struct {
	Name           string `json:"name"`
	PriceInCents   int64  `json:"priceInCents"`
	DestinationURL string `json:"destinationUrl"`
	ProtectedURL   string `json:"protectedUrl"`
	Email          string `json:"email"`
}

func (req *onboardRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if req.PriceInCents < 200 {
		return fmt.Errorf("price must be at least $2.00")
	}
	if !isHTTPURL(req.DestinationURL) {
		return fmt.Errorf("valid destination URL is required (http:// or https://)")
	}
	if req.ProtectedURL != "" && !isHTTPURL(req.ProtectedURL) {
		return fmt.Errorf("protected URL must be http:// or https://")
	}
	return nil
}

// onboardHandler starts Stripe Connect onboarding for a new payment link. The
// form is stashed in a signed cookie until the creator returns from Stripe.
func onboardHandler(c *gin.Context) {
	var req onboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form := onboardForm{
		Name:           strings.TrimSpace(req.Name),
		PriceInCents:   req.PriceInCents,
		DestinationURL: strings.TrimSpace(req.DestinationURL),
		ProtectedURL:   strings.TrimSpace(req.ProtectedURL),
		Email:          strings.TrimSpace(req.Email),
	}
	state, err := encodeFormState(form)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start onboarding"})
		return
	}
	setFormCookie(c, state)

	acct, err := createConnectAccount(form.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start onboarding"})
		return
	}
	link, err := createOnboardingLink(acct.ID,
		appURL()+"/api/onboard/refresh?account_id="+acct.ID,
		appURL()+"/api/callback?account_id="+acct.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start onboarding"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link.URL})
}

func setFormCookie(c *gin.Context, state string) {
	secure := strings.HasPrefix(appURL(), "https://")
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(formCookieName, state, int(formCookieTTL.Seconds()), "/", "", secure, true)
}

func clearFormCookie(c *gin.Context) {
	secure := strings.HasPrefix(appURL(), "https://")
	c.SetCookie(formCookieName, "", -1, "/", "", secure, true)
}

// onboardRefreshHandler handles the Stripe refresh URL: the creator abandoned
// onboarding and needs a fresh account link.
func onboardRefreshHandler(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/")
		return
	}
	acct, err := retrieveAccount(accountID)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=refresh_failed")
		return
	}
	if acct.DetailsSubmitted {
		// Already done on Stripe's side; go straight to the callback.
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/api/callback?account_id="+accountID)
		return
	}
	link, err := createOnboardingLink(accountID,
		appURL()+"/api/onboard/refresh?account_id="+accountID,
		appURL()+"/api/callback?account_id="+accountID)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=refresh_failed")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, link.URL)
}

// onboardRetryHandler is the JSON variant used by the pending page.
func onboardRetryHandler(c *gin.Context) {
	var req struct {
		AccountID string `json:"accountId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account ID"})
		return
	}
	acct, err := retrieveAccount(req.AccountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account link"})
		return
	}
	if acct.DetailsSubmitted {
		c.JSON(http.StatusOK, gin.H{
			"url":   appURL() + "/api/callback?account_id=" + req.AccountID,
			"ready": true,
		})
		return
	}
	link, err := createOnboardingLink(req.AccountID,
		appURL()+"/api/onboard/refresh?account_id="+req.AccountID,
		appURL()+"/api/callback?account_id="+req.AccountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link.URL, "ready": false})
}

// callbackHandler finalizes onboarding: verifies the connected account can
// take charges, then creates the product from the signed form cookie.
func callbackHandler(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=missing_account")
		return
	}
	acct, err := retrieveAccount(accountID)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=callback_failed")
		return
	}
	if !acct.ChargesEnabled {
		link, err := createOnboardingLink(accountID,
			appURL()+"/api/onboard/refresh?account_id="+accountID,
			appURL()+"/api/callback?account_id="+accountID)
		if err != nil {
			c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=callback_failed")
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, link.URL)
		return
	}

	state, err := c.Cookie(formCookieName)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=session_expired")
		return
	}
	form, err := decodeFormState(state)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=invalid_session")
		return
	}

	p := models.Product{
		ID:              generateID(),
		StripeAccountID: accountID,
		Name:            form.Name,
		PriceInCents:    form.PriceInCents,
		DestinationURL:  form.DestinationURL,
		IsActive:        true,
	}
	if form.ProtectedURL != "" {
		p.ProtectedURL = &form.ProtectedURL
	}
	if form.Email != "" {
		p.CreatorEmail = &form.Email
	}
	if err := db.Create(&p).Error; err != nil {
		log.Printf("callback: failed to create product: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=callback_failed")
		return
	}
	clearFormCookie(c)
	c.Redirect(http.StatusTemporaryRedirect, appURL()+"/created?id="+p.ID)
}

// --- checkout ---

// checkoutHandler creates a Stripe checkout session for a product. The
// success URL depends on the flow: gate embeds come back to the host page,
// protected products go through /api/success to mint a token, and plain
// products redirect straight to the destination.
func checkoutHandler(c *gin.Context) {
	var req struct {
		ProductID string `json:"productId" binding:"required"`
		ReturnURL string `json:"returnUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product ID is required"})
		return
	}

	var p models.Product
	if err := db.Where("id = ? AND is_active = ?", req.ProductID, true).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found or inactive"})
		return
	}

	var successURL string
	switch {
	case req.ReturnURL != "":
		sep := "?"
		if strings.Contains(req.ReturnURL, "?") {
			sep = "&"
		}
		successURL = req.ReturnURL + sep + "paylink_payment={CHECKOUT_SESSION_ID}"
	case p.ProtectedURL != nil:
		successURL = appURL() + "/api/success?product_id=" + p.ID + "&session_id={CHECKOUT_SESSION_ID}"
	default:
		successURL = p.DestinationURL
	}

	sess, err := createCheckoutSession(&p, successURL, appURL()+"/pay/"+p.ID+"?canceled=true")
	if err != nil {
		log.Printf("checkout: session create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

// --- product info for embeds ---

// Embeds run on arbitrary origins, so the product endpoint reflects the
// requesting origin instead of hardcoding one.
func productCORS(c *gin.Context) {
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = "*"
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Header("Vary", "Origin")
}

func productOptionsHandler(c *gin.Context) {
	productCORS(c)
	c.Status(http.StatusNoContent)
}

func productHandler(c *gin.Context) {
	productCORS(c)
	var p models.Product
	if err := db.First(&p, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if !p.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "product is not active"})
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.Header("X-Content-Type-Options", "nosniff")
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "name": p.Name, "price": p.PriceInCents})
}

// --- payment success / token mint ---

// successHandler is the checkout success URL for protected products: verify
// the session actually paid, mint (or re-issue) the token, and hand the buyer
// to the access page.
func successHandler(c *gin.Context) {
	productID := c.Query("product_id")
	sessionID := c.Query("session_id")
	if productID == "" || sessionID == "" {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=invalid_success")
		return
	}

	var p models.Product
	if err := db.First(&p, "id = ?", productID).Error; err != nil {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=product_not_found")
		return
	}
	if p.ProtectedURL == nil {
		c.Redirect(http.StatusTemporaryRedirect, p.DestinationURL)
		return
	}

	sess, err := retrieveCheckoutSession(sessionID, p.StripeAccountID)
	if err != nil || sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/pay/"+productID+"?error=payment_not_confirmed")
		return
	}

	minter := &access.Minter{Store: tokenStore}
	rec, err := minter.Mint(c.Request.Context(), p.ID, sessionID)
	if err != nil {
		log.Printf("success: mint failed: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, appURL()+"/?error=success_failed")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, appURL()+"/access/"+rec.Token)
}

// mintAccessHandler is the mint endpoint for the surrounding checkout
// completion flow. Idempotent per payment reference: repeat calls return the
// already-minted token.
func mintAccessHandler(c *gin.Context) {
	var req struct {
		ProductID  string `json:"productId" binding:"required"`
		PaymentRef string `json:"paymentReference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing productId or paymentReference"})
		return
	}

	var p models.Product
	if err := db.First(&p, "id = ?", req.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if p.ProtectedURL == nil {
		// Nothing to protect; the destination is public after payment.
		c.JSON(http.StatusOK, gin.H{"url": p.DestinationURL, "protected": false})
		return
	}

	minter := &access.Minter{Store: tokenStore}
	rec, err := minter.Mint(c.Request.Context(), p.ID, req.PaymentRef)
	if err != nil {
		log.Printf("mint: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     rec.Token,
		"url":       appURL() + "/access/" + rec.Token,
		"protected": true,
		"expiresAt": rec.ExpiresAt,
	})
}

// verifyAccessHandler redeems a token. 404 means the token never existed,
// 410 means it once worked and the window has closed; the distinction drives
// different user messaging.
func verifyAccessHandler(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "missing token"})
		return
	}

	redeemer := &access.Redeemer{Store: tokenStore}
	res, err := redeemer.Redeem(c.Request.Context(), token)
	if err != nil {
		log.Printf("access: verify failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"valid": false, "error": "failed to verify token"})
		return
	}
	switch res.Outcome {
	case access.Invalid:
		c.JSON(http.StatusNotFound, gin.H{"valid": false, "error": "invalid access token"})
	case access.Expired:
		c.JSON(http.StatusGone, gin.H{"valid": false, "error": "access token has expired"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"valid":       true,
			"url":         res.URL,
			"productName": res.ProductName,
			"usedBefore":  res.UsedBefore,
			"download":    urlkind.IsDownload(res.URL),
		})
	}
}

// --- pages ---

func payPageHandler(c *gin.Context) {
	var p models.Product
	if err := db.First(&p, "id = ?", c.Param("id")).Error; err != nil || !p.IsActive {
		c.HTML(http.StatusNotFound, "notfound.html", gin.H{})
		return
	}
	c.HTML(http.StatusOK, "pay.html", gin.H{
		"Product":   p,
		"Price":     fmt.Sprintf("$%.2f", float64(p.PriceInCents)/100),
		"Canceled":  c.Query("canceled") == "true",
		"ReturnURL": c.Query("return_url"),
	})
}

func createdPageHandler(c *gin.Context) {
	id := c.Query("id")
	var p models.Product
	if id == "" || db.First(&p, "id = ?", id).Error != nil {
		c.HTML(http.StatusNotFound, "notfound.html", gin.H{})
		return
	}
	c.HTML(http.StatusOK, "created.html", gin.H{
		"Product": p,
		"PayURL":  appURL() + "/pay/" + p.ID,
		"Embed":   fmt.Sprintf(`<script src="%s/public/embed.js" data-paylink="%s"></script>`, appURL(), p.ID),
	})
}

func accessPageHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "access.html", gin.H{"Token": c.Param("token")})
}
