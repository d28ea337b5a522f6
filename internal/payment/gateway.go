package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

const defaultGatewayTimeout = 10 * time.Second

// Verdict is the gateway's view of a transaction.
type Verdict struct {
	Outcome domain.PaymentOutcome
	// Final is false while the gateway still reports the payment as pending.
	Final bool
	Meta  map[string]any
}

// GatewayClient asks the payment gateway for the state of a transaction.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

// NewGatewayClient authenticates every request through source and retries
// once with a fresh token on 401.
func NewGatewayClient(baseURL string, source auth.TokenSource) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   defaultGatewayTimeout,
			Transport: &auth.Transport{Source: source},
		},
	}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string         `json:"status"`
		Reference string         `json:"reference"`
		Channel   string         `json:"channel"`
		Metadata  map[string]any `json:"metadata"`
	} `json:"data"`
}

// Verify looks up a transaction by reference.
func (c *GatewayClient) Verify(ctx context.Context, reference string) (Verdict, error) {
	endpoint := c.baseURL + "/transactions/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Verdict{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("verify %s: %w: %v", reference, domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Verdict{}, domain.ErrBookingNotFound
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Verdict{}, fmt.Errorf("verify %s: status %d: %w", reference, resp.StatusCode, domain.ErrGatewayUnavailable)
	}

	var body verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return Verdict{}, fmt.Errorf("decode verify response: %w", err)
	}
	outcome, final, err := ParseOutcome(body.Data.Status)
	if err != nil {
		return Verdict{}, fmt.Errorf("verify %s: gateway status %q: %w", reference, body.Data.Status, err)
	}

	meta := map[string]any{}
	for k, v := range body.Data.Metadata {
		meta[k] = v
	}
	if body.Data.Channel != "" {
		meta["channel"] = body.Data.Channel
	}
	if len(meta) == 0 {
		meta = nil
	}
	return Verdict{Outcome: outcome, Final: final, Meta: meta}, nil
}
