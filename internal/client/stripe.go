package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"charity-market/internal/apperr"
	"charity-market/internal/config"
	"charity-market/internal/model"
)

// StripeClient is the payment gateway adapter. It never mutates domain
// state and never retries; the checkout service interprets its responses.
type StripeClient interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*model.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	VerifyWebhookSignature(payload []byte, sigHeader string) (*model.StripeWebhookEvent, error)
}

type stripeClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	secretKey     string
	webhookSecret string
	signatureTol  time.Duration
	now           func() time.Time
}

func NewStripeClient(stripeCfg *config.Stripe) StripeClient {
	return &stripeClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    stripeCfg.BaseApiURL,
		secretKey:     stripeCfg.SecretKey,
		webhookSecret: stripeCfg.WebhookSecret,
		signatureTol:  5 * time.Minute,
		now:           time.Now,
	}
}

func (c *stripeClientImpl) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*model.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/payment_intents",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.doIntentRequest(req, "create payment intent")
}

func (c *stripeClientImpl) RetrieveIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/payment_intents/%s", c.baseApiURL, url.PathEscape(intentID)), nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	return c.doIntentRequest(req, "retrieve payment intent")
}

func (c *stripeClientImpl) doIntentRequest(req *http.Request, op string) (*model.PaymentIntent, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &apperr.GatewayError{Op: op, StatusCode: resp.StatusCode, Body: string(b)}
	}

	var intent model.PaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, &apperr.GatewayError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &intent, nil
}

// VerifyWebhookSignature checks Stripe's v1 scheme: the Stripe-Signature
// header carries a timestamp and one or more HMAC-SHA256 digests of
// "<timestamp>.<payload>" keyed with the endpoint secret. Fails closed on
// any parse, tolerance or digest mismatch.
func (c *stripeClientImpl) VerifyWebhookSignature(payload []byte, sigHeader string) (*model.StripeWebhookEvent, error) {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrSignatureInvalid, err)
	}

	if c.now().Sub(time.Unix(timestamp, 0)) > c.signatureTol {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", apperr.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	expected := mac.Sum(nil)

	matched := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: no matching v1 signature", apperr.ErrSignatureInvalid)
	}

	var event model.StripeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	return &event, nil
}

func parseSignatureHeader(header string) (timestamp int64, signatures []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("empty signature header")
	}

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp, err = strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("bad timestamp: %v", err)
			}
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("missing timestamp or v1 signature")
	}
	return timestamp, signatures, nil
}
