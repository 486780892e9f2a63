package riskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	rdto "github.com/officialnyabuto/solsports/internal/risk-service/dto"
	"github.com/officialnyabuto/solsports/internal/risk/oracle"
)

// ErrOutcomeNotReady: o risk-service ainda não tem feed utilizável pro
// evento (NoFeed). O worker tenta de novo no próximo tick.
var ErrOutcomeNotReady = errors.New("outcome not ready")

// Client consome a API do risk-service a partir do settlement-worker.
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

// Outcome busca o desfecho resolvido de um evento.
func (c *Client) Outcome(ctx context.Context, eventID string) (oracle.Outcome, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/events/"+eventID+"/outcome", nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return oracle.Outcome{}, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return oracle.Outcome{}, ErrOutcomeNotReady
	}
	if res.StatusCode >= 300 {
		return oracle.Outcome{}, fmt.Errorf("risk-service outcome http %d", res.StatusCode)
	}

	var out oracle.Outcome
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return oracle.Outcome{}, err
	}
	return out, nil
}

// ReportSettlement registra a liquidação concluída no risk-service.
func (c *Client) ReportSettlement(ctx context.Context, rep rdto.SettlementReport) error {
	body, _ := json.Marshal(rep)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/settlements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("risk-service settlement http %d", res.StatusCode)
	}
	return nil
}
