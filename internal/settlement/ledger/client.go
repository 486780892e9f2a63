package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ledgerdto "github.com/officialnyabuto/solsports/internal/settlement/ledger/dto"
)

// Client fala com a camada de ledger/liquidação — o serviço que de fato
// movimenta fundos. O plano de risco só decide; quem paga é o ledger.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Payout pede ao ledger o pagamento do lado vencedor de um evento.
// ExternalRef (eventID) garante idempotência do lado do ledger.
func (c *Client) Payout(ctx context.Context, eventID, winner string, amountCents int64, externalRef string) (string, error) {
	body, _ := json.Marshal(ledgerdto.PayoutRequest{
		EventID:     eventID,
		Winner:      winner,
		AmountCents: amountCents,
		ExternalRef: externalRef,
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ledger/payout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("ledger payout http %d", res.StatusCode)
	}
	var out ledgerdto.PayoutResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Status != "PAID" {
		return "", fmt.Errorf("ledger payout status %q", out.Status)
	}
	return out.LedgerRef, nil
}
