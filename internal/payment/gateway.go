package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var ErrGateway = errors.New("payment gateway error")

// Intent is a gateway-side payable session opened before the client submits
// payment proof.
type Intent struct {
	ID       string          `json:"intent_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type IntentCreator interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal) (*Intent, error)
}

// Gateway talks to the payment provider's order API with basic auth.
type Gateway struct {
	HTTP     *http.Client
	BaseURL  string
	KeyID    string
	Secret   string
	Currency string
}

func NewGateway(baseURL, keyID, secret, currency string, timeout time.Duration) *Gateway {
	return &Gateway{
		HTTP:     &http.Client{Timeout: timeout},
		BaseURL:  baseURL,
		KeyID:    keyID,
		Secret:   secret,
		Currency: currency,
	}
}

// CreateIntent opens a payable intent for amount. The gateway counts in the
// currency's minor unit, so the amount is shifted two places.
func (g *Gateway) CreateIntent(ctx context.Context, amount decimal.Decimal) (*Intent, error) {
	payload := map[string]any{
		"amount":   amount.Shift(2).IntPart(),
		"currency": g.Currency,
		"receipt":  fmt.Sprintf("rcpt_%d", time.Now().UnixMilli()),
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.KeyID, g.Secret)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: status %s", ErrGateway, res.Status)
	}

	var out struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	return &Intent{
		ID:       out.ID,
		Amount:   decimal.New(out.Amount, -2),
		Currency: out.Currency,
	}, nil
}
