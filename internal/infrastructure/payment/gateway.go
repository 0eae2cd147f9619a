package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/application/dto"
	"github.com/jhoicas/checkout-core/internal/domain"
)

var _ checkout.PaymentGateway = (*Gateway)(nil)

// Gateway cliente HTTP de la pasarela de pago externa. La llamada es síncrona
// y opaca: un timeout, un error de red o un rechazo de negocio cuentan igual
// como falla de la intención de pago.
type Gateway struct {
	url    string
	apiKey string
	client *http.Client
}

// NewGateway construye el cliente con el timeout dado.
func NewGateway(url, apiKey string, timeout time.Duration) *Gateway {
	return &Gateway{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	Method   string          `json:"method"`
	Token    string          `json:"token"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type chargeResponse struct {
	Approved      bool   `json:"approved"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// Accept envía la intención de cobro. Devuelve ErrPaymentDeclined cuando la
// pasarela rechaza el cobro.
func (g *Gateway) Accept(ctx context.Context, payment dto.PaymentData, amount decimal.Decimal, currency string) (string, error) {
	body, err := json.Marshal(chargeRequest{
		Method:   payment.Method,
		Token:    payment.Token,
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		return "", fmt.Errorf("marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("charge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pasarela de pago respondió %d", resp.StatusCode)
	}

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode charge response: %w", err)
	}
	if !out.Approved {
		return "", fmt.Errorf("cobro rechazado (%s): %w", out.Reason, domain.ErrPaymentDeclined)
	}
	return out.TransactionID, nil
}
