package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"marketplace-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*CheckoutGateway)(nil)

// CheckoutGateway implements adapter.PaymentGateway against the hosted
// checkout REST API: one call creates a payment intent and yields a redirect
// URL, a second call verifies the intent after the gateway calls back.
type CheckoutGateway struct {
	merchantID string
	callback   string
	sandbox    bool
	client     *http.Client
}

func NewCheckoutGateway(merchantID, callbackURL string, sandbox bool) (*CheckoutGateway, error) {
	if merchantID == "" {
		return nil, errors.New("merchant id empty")
	}
	if _, err := url.Parse(callbackURL); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}
	return &CheckoutGateway{
		merchantID: merchantID,
		callback:   callbackURL,
		sandbox:    sandbox,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *CheckoutGateway) Name() string { return "checkout" }

func (g *CheckoutGateway) endpoint(path string) string {
	base := "https://api.checkout-pay.com/v1"
	if g.sandbox {
		base = "https://sandbox.checkout-pay.com/v1"
	}
	return base + path
}

// RequestPayment creates an intent and returns (authority, payURL).
func (g *CheckoutGateway) RequestPayment(ctx context.Context, amountCents int64, currency, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
	if callbackURL == "" {
		callbackURL = g.callback
	}
	payload := map[string]any{
		"merchant_id":  g.merchantID,
		"amount":       amountCents,
		"currency":     currency,
		"description":  description,
		"callback_url": callbackURL,
	}
	if meta != nil {
		payload["metadata"] = meta
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint("/payment/request"), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	var out struct {
		Data struct {
			Authority string `json:"authority"`
			PayURL    string `json:"pay_url"`
			Code      int    `json:"code"`
		} `json:"data"`
		Errors any `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	if out.Data.Code != 100 || out.Data.Authority == "" {
		return "", "", errors.New("checkout request failed")
	}
	return out.Data.Authority, out.Data.PayURL, nil
}

// VerifyPayment verifies the intent and returns the provider refID on success.
func (g *CheckoutGateway) VerifyPayment(ctx context.Context, authority string, expectedAmountCents int64) (string, error) {
	payload := map[string]any{
		"merchant_id": g.merchantID,
		"amount":      expectedAmountCents,
		"authority":   authority,
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint("/payment/verify"), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out struct {
		Data struct {
			Code  int   `json:"code"`
			RefID int64 `json:"ref_id"`
		} `json:"data"`
		Errors any `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	// 100 is success, 101 means already verified. Both carry a ref_id.
	if (out.Data.Code != 100 && out.Data.Code != 101) || out.Data.RefID == 0 {
		return "", errors.New("checkout verify failed")
	}
	return fmt.Sprintf("%d", out.Data.RefID), nil
}
