package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PaymentRail is the boundary to the external payment provider. The escrow
// engine only records the returned reference; it never moves money itself.
type PaymentRail interface {
	CreateChargeIntent(ctx context.Context, amountCents int64, payerRef string) (string, error)
}

// PaymentClient talks to the payment service's internal API.
type PaymentClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewPaymentClient(baseURL string, log *zap.Logger) *PaymentClient {
	return &PaymentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type chargeIntentResponse struct {
	ExternalRef string `json:"external_ref"`
}

func (c *PaymentClient) CreateChargeIntent(ctx context.Context, amountCents int64, payerRef string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"amount_cents": amountCents,
		"payer_ref":    payerRef,
	})

	url := fmt.Sprintf("%s/internal/charge-intents", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("payment service returned %d: %s", resp.StatusCode, string(b))
	}

	var result chargeIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.ExternalRef == "" {
		return "", fmt.Errorf("payment service returned empty external_ref")
	}
	return result.ExternalRef, nil
}
